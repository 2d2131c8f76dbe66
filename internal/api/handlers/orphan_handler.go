package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/gin-gonic/gin"
)

type OrphanHandler struct {
	orphans   repository.OrphanRepository
	sweeper   *cleanup.Sweeper
	batchSize int

	sweeping atomic.Bool
	wg       sync.WaitGroup
}

func NewOrphanHandler(orphans repository.OrphanRepository, sweeper *cleanup.Sweeper, batchSize int) *OrphanHandler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OrphanHandler{orphans: orphans, sweeper: sweeper, batchSize: batchSize}
}

func (h *OrphanHandler) parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.batchSize)))
	if err != nil || limit <= 0 {
		return h.batchSize
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// ListPending returns orphaned objects still waiting for a sweep.
func (h *OrphanHandler) ListPending(c *gin.Context) {
	orphans, err := h.orphans.ListPending(c.Request.Context(), h.parseLimit(c))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list orphaned objects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": orphans})
}

// Sweep loads a batch of pending orphans and retries their deletion in the
// background; the batch can outlive any reasonable write timeout. Only one
// sweep runs at a time.
func (h *OrphanHandler) Sweep(c *gin.Context) {
	if !h.sweeping.CompareAndSwap(false, true) {
		errorResponse(c, http.StatusConflict, "orphan sweep already running")
		return
	}

	pending, err := h.orphans.ListPending(c.Request.Context(), h.parseLimit(c))
	if err != nil {
		h.sweeping.Store(false)
		errorResponse(c, http.StatusInternalServerError, "orphan sweep failed")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.sweeping.Store(false)
		h.sweeper.Process(ctx, pending)
	}()

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "data": gin.H{"scanned": len(pending)}})
}

// Wait blocks until the background sweep, if any, has finished.
func (h *OrphanHandler) Wait() {
	h.wg.Wait()
}
