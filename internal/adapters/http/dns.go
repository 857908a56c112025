package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/services"
	"github.com/acederberg/captura-platform/internal/logger"
	"github.com/acederberg/captura-platform/internal/tracelog"
)

type DNSHandler struct {
	reconciler *services.Reconciler
	domain     string
	logsDir    string
	log        *logger.Logger
}

// NewDNSHandler creates the handler. Traces are also persisted below logsDir
// unless it is empty.
func NewDNSHandler(reconciler *services.Reconciler, defaultDomain, logsDir string, log *logger.Logger) *DNSHandler {
	return &DNSHandler{
		reconciler: reconciler,
		domain:     defaultDomain,
		logsDir:    logsDir,
		log:        log,
	}
}

type ReconcileRequest struct {
	IP     string `json:"ip"`
	Domain string `json:"domain"`
}

// Reconcile points the root, wildcard and www records at the requested IP and
// returns the trace of the run.
func (h *DNSHandler) Reconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err))
	}
	if req.Domain == "" {
		req.Domain = h.domain
	}
	if req.Domain == "" || req.IP == "" {
		return errorResponse(c, fmt.Errorf("%w: `ip` and `domain` are required", domain.ErrInvalidArgument))
	}

	var buf bytes.Buffer
	var trace io.Writer = &buf
	if h.logsDir != "" {
		f, err := tracelog.Open(h.logsDir, "porkbun", "reconcile", time.Now())
		if err != nil {
			return errorResponse(c, err)
		}
		defer f.Close()
		trace = io.MultiWriter(&buf, f)
	}

	err := h.reconciler.Reconcile(c.UserContext(), req.Domain, req.IP, domain.Subdomains(req.Domain), trace)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if buf.Len() == 0 {
		lines = []string{}
	}

	if err != nil {
		h.log.Error("Reconciliation of `%s` failed: %v", req.Domain, err)
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
			"trace": lines,
		})
	}
	return c.JSON(fiber.Map{
		"domain": req.Domain,
		"ip":     req.IP,
		"trace":  lines,
	})
}
