package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chbs/lead-outreach/internal/core"
)

// Server exposes the outreach service to a presentation layer over HTTP
type Server struct {
	svc    *core.OutreachService
	store  core.ContactStore
	logger *zap.Logger
	http   *http.Server
}

// NewServer creates a new API server
func NewServer(svc *core.OutreachService, contactStore core.ContactStore, listenAddr string, logger *zap.Logger) *Server {
	s := &Server{
		svc:    svc,
		store:  contactStore,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/contacts", s.listContacts)
		api.POST("/contacts", s.createContact)
		api.PUT("/contacts/:id", s.updateContact)
		api.DELETE("/contacts/:id", s.deleteContact)
		api.POST("/contacts/:id/send-email", s.sendOne)
		api.POST("/import/preview", s.previewImport)
		api.POST("/import", s.runImport)
		api.GET("/followups", s.listFollowUps)
		api.POST("/followups/send", s.sendFollowUps)
		api.GET("/stats", s.stats)
	}

	s.http = &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // bulk runs hold the request open
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// senderRequest carries the sender identity fields the original client sent
type senderRequest struct {
	YourName    string `json:"yourName"`
	YourCompany string `json:"yourCompany"`
	YourPhone   string `json:"yourPhone"`
}

func (r senderRequest) toSender() core.Sender {
	return core.Sender{Name: r.YourName, Company: r.YourCompany, Phone: r.YourPhone}
}

type importRequest struct {
	Text    string        `json:"text"`
	Sender  senderRequest `json:"sender"`
	Persist bool          `json:"persist"`
	Send    bool          `json:"send"`
}

type contactPayload struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	Type            string `json:"type,omitempty"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	LastContactedAt string `json:"last_contacted_date,omitempty"`
}

func toPayload(c *core.Contact) contactPayload {
	p := contactPayload{
		ID:        c.ID,
		Name:      c.DisplayName(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Type:      string(c.LeadType),
		Status:    string(c.Status),
		Notes:     c.Notes,
	}
	if c.LastContactedAt != nil {
		p.LastContactedAt = c.LastContactedAt.Format(time.RFC3339)
	}
	return p
}

func (p contactPayload) toContact() core.Contact {
	status := core.Status(p.Status)
	if status == "" {
		status = core.StatusNew
	}
	return core.Contact{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		LeadType:  core.LeadType(p.Type),
		Status:    status,
		Notes:     p.Notes,
	}
}

type dispatchPayload struct {
	RunID     string         `json:"runId,omitempty"`
	Attempted int            `json:"attempted"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Errors    map[int]string `json:"errors,omitempty"`
	Cancelled bool           `json:"cancelled,omitempty"`
}

func toDispatchPayload(r *core.DispatchResult) dispatchPayload {
	return dispatchPayload{
		RunID:     r.RunID,
		Attempted: r.Attempted,
		Sent:      r.Sent,
		Failed:    r.Failed,
		Errors:    r.Errors,
		Cancelled: r.Cancelled,
	}
}

// listContacts handles GET /api/contacts
func (s *Server) listContacts(c *gin.Context) {
	filter := core.ContactFilter{
		Term:     c.Query("q"),
		LeadType: core.LeadType(c.Query("type")),
		Status:   core.Status(c.Query("status")),
	}
	contacts, err := s.svc.Contacts(c.Request.Context(), filter)
	if err != nil {
		s.abortError(c, err)
		return
	}
	payload := make([]contactPayload, len(contacts))
	for i := range contacts {
		payload[i] = toPayload(&contacts[i])
	}
	c.JSON(http.StatusOK, payload)
}

// createContact handles POST /api/contacts
func (s *Server) createContact(c *gin.Context) {
	var body contactPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	contact := body.toContact()
	if !contact.Reachable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contact needs an email or phone"})
		return
	}
	id, err := s.store.Create(c.Request.Context(), &contact)
	if err != nil {
		s.abortError(c, err)
		return
	}
	contact.ID = id
	c.JSON(http.StatusCreated, toPayload(&contact))
}

// updateContact handles PUT /api/contacts/:id. Every field the edit form
// exposes is updatable; absent fields are left unchanged.
func (s *Server) updateContact(c *gin.Context) {
	var body struct {
		Name      *string `json:"name"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
		Address   *string `json:"address"`
		Status    *string `json:"status"`
		Type      *string `json:"type"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	update := core.ContactUpdate{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		FullName:  body.Name,
		Email:     body.Email,
		Phone:     body.Phone,
		Address:   body.Address,
		Notes:     body.Notes,
	}
	if body.Status != nil {
		status := core.Status(*body.Status)
		update.Status = &status
	}
	if body.Type != nil {
		leadType := core.LeadType(*body.Type)
		update.LeadType = &leadType
	}
	if err := s.store.Update(c.Request.Context(), c.Param("id"), update); err != nil {
		s.abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteContact handles DELETE /api/contacts/:id
func (s *Server) deleteContact(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// sendOne handles POST /api/contacts/:id/send-email
func (s *Server) sendOne(c *gin.Context) {
	var body senderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := s.svc.SendOne(c.Request.Context(), c.Param("id"), body.toSender())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDispatchPayload(result))
}

// previewImport handles POST /api/import/preview
func (s *Server) previewImport(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	records, rejected := s.svc.ParseImport(body.Text)
	payload := make([]contactPayload, len(records))
	for i := range records {
		payload[i] = toPayload(&records[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"records":       payload,
		"rejectedCount": rejected,
	})
}

// runImport handles POST /api/import
func (s *Server) runImport(c *gin.Context) {
	var body importRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := s.svc.ImportAndSend(c.Request.Context(), body.Text, body.Sender.toSender(), body.Persist, body.Send, nil)
	if err != nil && !errors.Is(err, core.ErrCancelled) {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDispatchPayload(result))
}

// listFollowUps handles GET /api/followups
func (s *Server) listFollowUps(c *gin.Context) {
	candidates, err := s.svc.FollowUps(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	type candidatePayload struct {
		Contact    contactPayload `json:"contact"`
		EmailCount int            `json:"emailCount"`
		LastSentAt string         `json:"lastSentAt"`
	}
	payload := make([]candidatePayload, len(candidates))
	for i, candidate := range candidates {
		payload[i] = candidatePayload{
			Contact:    toPayload(&candidate.Contact),
			EmailCount: candidate.EmailCount,
			LastSentAt: candidate.LastSentAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, payload)
}

// sendFollowUps handles POST /api/followups/send
func (s *Server) sendFollowUps(c *gin.Context) {
	var body senderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := s.svc.SendFollowUps(c.Request.Context(), body.toSender(), nil)
	if err != nil && !errors.Is(err, core.ErrCancelled) {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDispatchPayload(result))
}

// stats handles GET /api/stats
func (s *Server) stats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":      stats.Total,
		"new":        stats.New,
		"contacted":  stats.Contacted,
		"interested": stats.Interested,
	})
}

// abortError maps service errors onto HTTP statuses
func (s *Server) abortError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
