package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/showrunner/internal/blobstore"
	"github.com/zulandar/showrunner/internal/director"
	"github.com/zulandar/showrunner/internal/genai"
	"github.com/zulandar/showrunner/internal/integrity"
	"github.com/zulandar/showrunner/internal/project"
	"github.com/zulandar/showrunner/internal/timeline"
)

// maxUpload caps POST /api/blobs bodies.
const maxUpload = 32 << 20

// errUnchanged lets a heal that touched nothing skip the change hooks.
var errUnchanged = errors.New("server: unchanged")

type handlers struct {
	doc    *project.Document
	blobs  *blobstore.Store
	dir    *director.Director
	events *broker
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/project", h.getProject)
	api.GET("/scenes", h.listScenes)
	api.GET("/assets/:kind/:id/state", h.assetState)
	api.GET("/blobs/:id", h.getBlob)
	api.POST("/blobs", h.postBlob)
	api.POST("/integrity/scan", h.scan)
	api.GET("/events", h.events.handle)

	api.POST("/scenes/:id/shots", h.generateShots)
	api.POST("/scenes/:id/shots/:shot/image", h.generateShotImage)
	api.POST("/assets/:kind/:id/image", h.generateAssetImage)
}

func (h *handlers) getProject(c *gin.Context) {
	data, err := h.doc.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

type sceneJSON struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	InstallmentID string `json:"installmentId"`
	ItemID        string `json:"itemId"`
	Position      int    `json:"position"`
}

func (h *handlers) listScenes(c *gin.Context) {
	out := []sceneJSON{}
	err := h.doc.View(func(p *project.Project) {
		for _, ref := range p.SceneOrder().Refs() {
			out = append(out, sceneJSON{
				ID:            ref.SceneID,
				Code:          ref.Code,
				InstallmentID: ref.InstallmentID,
				ItemID:        ref.ItemID,
				Position:      ref.Position,
			})
		}
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenes": out})
}

func (h *handlers) assetState(c *gin.Context) {
	kind, err := project.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, sceneID := c.Param("id"), c.Query("scene")

	var res timeline.Result
	viewErr := h.doc.View(func(p *project.Project) {
		res, err = timeline.ResolveByRef(p, kind, id, sceneID)
	})
	if viewErr != nil {
		err = viewErr
	}
	if err != nil {
		fail(c, err)
		return
	}

	applied := res.Applied
	if applied == nil {
		applied = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"scene":   sceneID,
		"asset":   res.Asset,
		"applied": applied,
		"warning": res.Warning,
	})
}

func (h *handlers) getBlob(c *gin.Context) {
	b, found, err := h.blobs.GetOrPlaceholder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if found {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		c.Header("Cache-Control", "no-store")
		c.Header("X-Blob-Missing", "1")
	}
	c.Data(http.StatusOK, b.ContentType, b.Data)
}

// postBlob accepts either a raw body or a multipart form with a "file" part.
func (h *handlers) postBlob(c *gin.Context) {
	var (
		data []byte
		err  error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": oerr.Error()})
			return
		}
		defer f.Close()
		data, err = io.ReadAll(io.LimitReader(f, maxUpload+1))
	} else {
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, maxUpload+1))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(data) > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds " + strconv.Itoa(maxUpload>>20) + " MiB"})
		return
	}

	id, err := h.blobs.Put(c.Request.Context(), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handlers) scan(c *gin.Context) {
	var report integrity.Report
	err := h.doc.Update(func(p *project.Project) error {
		report = integrity.Heal(c.Request.Context(), p, h.blobs)
		if report.Migrated == 0 && report.Dropped == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		fail(c, err)
		return
	}
	if report.Skipped {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": report.Err.Error(), "skipped": true})
		return
	}
	body := gin.H{
		"migrated": report.Migrated,
		"checked":  report.Checked,
		"dropped":  report.Dropped,
	}
	if report.Err != nil {
		body["warning"] = report.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) generateShots(c *gin.Context) {
	if !h.requireDirector(c) {
		return
	}
	shots, err := h.dir.GenerateShotList(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shots": shots})
}

func (h *handlers) generateShotImage(c *gin.Context) {
	if !h.requireDirector(c) {
		return
	}
	id, err := h.dir.GenerateShotImage(c.Request.Context(), c.Param("id"), c.Param("shot"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

type assetImageRequest struct {
	Prompt string `json:"prompt"`
}

func (h *handlers) generateAssetImage(c *gin.Context) {
	if !h.requireDirector(c) {
		return
	}
	kind, err := project.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req assetImageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	id, err := h.dir.GenerateAssetImage(c.Request.Context(), kind, c.Param("id"), req.Prompt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *handlers) requireDirector(c *gin.Context) bool {
	if h.dir == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation is not configured"})
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, project.ErrNoProject), errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, project.ErrLocked), errors.Is(err, director.ErrStale):
		return http.StatusConflict
	case errors.Is(err, project.ErrIncomplete), errors.Is(err, project.ErrGate),
		errors.Is(err, project.ErrWrongFormat), errors.Is(err, blobstore.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, genai.ErrRateLimited):
		return http.StatusTooManyRequests
	case genai.KindOf(err) != "":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
