package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/storage"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

// Registration is an agent's saved form and terms for one event
type Registration struct {
	Form     *domain.AgentEventForm
	Agent    *domain.Agent
	ETA      domain.ETAOption
	ETAOther string
	Terms    domain.TermsByProduct
}

// EditorRows are the initial rows of the terms editor for one product.
// Touched is false when the agent never saved terms for it.
type EditorRows struct {
	ProductID uuid.UUID        `json:"product_id"`
	Rows      []domain.TermRow `json:"rows"`
	Touched   bool             `json:"touched"`
}

type termsService struct {
	repos  *repository.Repositories
	store  ObjectStore
	logger *zap.Logger
}

// NewTermsService creates the service behind agent registration
func NewTermsService(repos *repository.Repositories, store ObjectStore, logger *zap.Logger) *termsService {
	return &termsService{
		repos:  repos,
		store:  store,
		logger: logger,
	}
}

// Load returns the caller's current registration. Form and Agent are nil
// when the caller never registered for the event.
func (s *termsService) Load(ctx context.Context, eventID, userID uuid.UUID) (*Registration, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	reg := &Registration{Terms: domain.TermsByProduct{}}

	form, err := s.repos.AgentForm.GetByEventAndUser(ctx, eventID, userID)
	switch {
	case err == nil:
		reg.Form = form
		reg.ETA, reg.ETAOther = domain.ParseETA(form.DeliveryETA)
	case errors.IsNotFound(err):
	default:
		return nil, err
	}

	agent, err := s.repos.Agent.GetByEventAndUser(ctx, eventID, userID)
	switch {
	case err == nil:
		reg.Agent = agent
	case errors.IsNotFound(err):
	default:
		return nil, err
	}

	terms, err := s.repos.AgentTerm.ListByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	for _, t := range terms {
		reg.Terms[t.ProductID] = append(reg.Terms[t.ProductID], domain.TermRow{
			OptionID:  t.OptionID,
			Headcount: t.Headcount,
			Fee:       t.Fee,
		})
	}
	return reg, nil
}

// BulkExpand copies the given rows onto every listed product. With perOption
// set, products that have options get one copy of the rows per option.
func (s *termsService) BulkExpand(ctx context.Context, eventID uuid.UUID, req BulkTermsRequest) (domain.TermsByProduct, error) {
	if len(req.ProductIDs) == 0 {
		return nil, errors.Validation("product_ids", "select at least one product")
	}
	if len(req.Rows) == 0 {
		return nil, errors.Validation("rows", "add at least one row")
	}

	products, err := s.repos.Product.GetByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range req.ProductIDs {
		if p, ok := products[id]; !ok || p.EventID != eventID {
			return nil, errors.Validation("product_ids", fmt.Sprintf("product %s is not part of this event", id))
		}
	}

	var options map[uuid.UUID][]*domain.ProductOption
	if req.PerOption {
		options, err = s.repos.Option.ListByProducts(ctx, req.ProductIDs)
		if err != nil {
			return nil, err
		}
	}

	return ExpandTerms(req.ProductIDs, req.Rows, options, req.PerOption), nil
}

// ExpandTerms builds a terms map from one set of rows. Headcount below 1
// falls back to 1 and a negative fee to 0.
func ExpandTerms(
	productIDs []uuid.UUID,
	rows []domain.TermRow,
	options map[uuid.UUID][]*domain.ProductOption,
	perOption bool,
) domain.TermsByProduct {
	out := make(domain.TermsByProduct, len(productIDs))
	for _, pid := range productIDs {
		opts := options[pid]
		var expanded []domain.TermRow
		if perOption && len(opts) > 0 {
			for _, opt := range opts {
				optionID := opt.ID
				for _, r := range rows {
					expanded = append(expanded, normalizeRow(&optionID, r))
				}
			}
		} else {
			for _, r := range rows {
				expanded = append(expanded, normalizeRow(nil, r))
			}
		}
		out[pid] = expanded
	}
	return out
}

func normalizeRow(optionID *uuid.UUID, r domain.TermRow) domain.TermRow {
	if r.Headcount < 1 {
		r.Headcount = 1
	}
	if r.Fee < 0 {
		r.Fee = 0
	}
	r.OptionID = optionID
	return r
}

// EditorDefaults builds the initial editor rows for a product from the
// caller's saved terms
func (s *termsService) EditorDefaults(ctx context.Context, eventID, productID, userID uuid.UUID) (*EditorRows, error) {
	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.EventID != eventID {
		return nil, errors.NotFound("product", productID.String())
	}

	options, err := s.repos.Option.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	terms, err := s.repos.AgentTerm.ListByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	var saved []domain.TermRow
	for _, t := range terms {
		if t.ProductID == productID {
			saved = append(saved, domain.TermRow{OptionID: t.OptionID, Headcount: t.Headcount, Fee: t.Fee})
		}
	}

	return &EditorRows{
		ProductID: productID,
		Rows:      DefaultRows(options, saved),
		Touched:   len(saved) > 0,
	}, nil
}

// DefaultRows picks the starting rows for a product. With options there is
// one row per option, taken from that option's saved row, else the saved
// product level row, else headcount 1 and fee 0. Without options the saved
// rows are returned as is, or a single product level row.
func DefaultRows(options []*domain.ProductOption, saved []domain.TermRow) []domain.TermRow {
	blank := domain.TermRow{Headcount: 1, Fee: 0}

	if len(options) == 0 {
		if len(saved) == 0 {
			return []domain.TermRow{blank}
		}
		out := make([]domain.TermRow, len(saved))
		copy(out, saved)
		return out
	}

	byOption := make(map[uuid.UUID]domain.TermRow, len(saved))
	var generic *domain.TermRow
	for i := range saved {
		r := saved[i]
		if r.OptionID == nil {
			if generic == nil {
				generic = &r
			}
			continue
		}
		if _, ok := byOption[*r.OptionID]; !ok {
			byOption[*r.OptionID] = r
		}
	}

	rows := make([]domain.TermRow, 0, len(options))
	for _, opt := range options {
		optionID := opt.ID
		row := blank
		if r, ok := byOption[opt.ID]; ok {
			row = r
		} else if generic != nil {
			row = *generic
		}
		row.OptionID = &optionID
		rows = append(rows, row)
	}
	return rows
}

// Save registers the caller as an agent for the event and replaces the
// saved form and terms in one transaction
func (s *termsService) Save(ctx context.Context, eventID uuid.UUID, user *domain.User, req SaveTermsRequest) (*Registration, error) {
	if user == nil {
		return nil, &errors.ErrUnauthorized{Message: "sign in to register as an agent"}
	}

	methods, err := s.validateSave(ctx, eventID, &req)
	if err != nil {
		return nil, err
	}

	form := &domain.AgentEventForm{
		EventID:         eventID,
		AgentUserID:     user.ID,
		CertURL:         req.CertURL,
		CertWaived:      req.CertWaived,
		DeliveryMethods: methods,
		DeliveryETA:     domain.ETAPhrase(req.ETA, req.ETAOther),
		HasPerk:         req.HasPerk,
		Memo:            req.Memo,
	}

	var terms []*domain.AgentProductTerm
	for productID, rows := range req.Terms {
		for _, r := range rows {
			terms = append(terms, &domain.AgentProductTerm{
				EventID:     eventID,
				AgentUserID: user.ID,
				ProductID:   productID,
				OptionID:    r.OptionID,
				Headcount:   r.Headcount,
				Fee:         r.Fee,
			})
		}
	}

	var agent *domain.Agent
	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		var err error
		agent, err = upsertAgent(ctx, tx, eventID, user)
		if err != nil {
			return err
		}

		if err := tx.AgentForm.DeleteByEventAndUser(ctx, eventID, user.ID); err != nil {
			return err
		}
		if err := tx.AgentForm.Create(ctx, form); err != nil {
			return err
		}

		if err := tx.AgentTerm.DeleteByEventAndUser(ctx, eventID, user.ID); err != nil {
			return err
		}
		return tx.AgentTerm.CreateBatch(ctx, terms)
	})
	if err != nil {
		s.logger.Error("Failed to save agent registration",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
			zap.String("user_id", user.ID.String()),
		)
		return nil, err
	}

	s.logger.Info("Agent registration saved",
		zap.String("event_id", eventID.String()),
		zap.String("agent_id", agent.ID.String()),
		zap.Int("terms", len(terms)),
	)

	eta, other := domain.ParseETA(form.DeliveryETA)
	return &Registration{
		Form:     form,
		Agent:    agent,
		ETA:      eta,
		ETAOther: other,
		Terms:    req.Terms,
	}, nil
}

func (s *termsService) validateSave(ctx context.Context, eventID uuid.UUID, req *SaveTermsRequest) ([]domain.DeliveryMethod, error) {
	if _, err := s.repos.Event.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if len(req.Terms) == 0 {
		return nil, errors.Validation("terms", "select at least one product")
	}

	productIDs := make([]uuid.UUID, 0, len(req.Terms))
	var optionIDs []uuid.UUID
	for productID, rows := range req.Terms {
		if len(rows) == 0 {
			return nil, errors.Validation("terms", fmt.Sprintf("product %s has no terms", productID))
		}
		for _, r := range rows {
			if r.Headcount < 1 {
				return nil, errors.Validation("headcount", "headcount must be at least 1")
			}
			if r.Fee < 0 {
				return nil, errors.Validation("fee", "fee cannot be negative")
			}
			if r.OptionID != nil {
				optionIDs = append(optionIDs, *r.OptionID)
			}
		}
		productIDs = append(productIDs, productID)
	}

	products, err := s.repos.Product.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	options, err := s.repos.Option.GetByIDs(ctx, optionIDs)
	if err != nil {
		return nil, err
	}
	for productID, rows := range req.Terms {
		if p, ok := products[productID]; !ok || p.EventID != eventID {
			return nil, errors.Validation("terms", fmt.Sprintf("product %s is not part of this event", productID))
		}
		for _, r := range rows {
			if r.OptionID == nil {
				continue
			}
			if opt, ok := options[*r.OptionID]; !ok || opt.ProductID != productID {
				return nil, errors.Validation("option_id", fmt.Sprintf("option %s does not belong to product %s", *r.OptionID, productID))
			}
		}
	}

	var methods []domain.DeliveryMethod
	seen := make(map[domain.DeliveryMethod]bool, len(req.DeliveryMethods))
	for _, m := range req.DeliveryMethods {
		if !m.IsValid() {
			return nil, errors.Validation("delivery_methods", fmt.Sprintf("unknown delivery method %q", m))
		}
		if !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		return nil, errors.Validation("delivery_methods", "select at least one delivery method")
	}

	if req.CertURL != nil && strings.TrimSpace(*req.CertURL) == "" {
		req.CertURL = nil
	}
	if req.CertURL == nil && !req.CertWaived {
		return nil, errors.Validation("cert_url", "upload a certification image or waive it")
	}

	if domain.ETAPhrase(req.ETA, req.ETAOther) == "" {
		return nil, errors.Validation("eta", "delivery estimate is required")
	}
	return methods, nil
}

// upsertAgent finds the caller's agent for the event or creates one from the
// user's profile. An existing agent is reactivated.
func upsertAgent(ctx context.Context, tx *repository.Repositories, eventID uuid.UUID, user *domain.User) (*domain.Agent, error) {
	displayName := agentDisplayName(user)

	agent, err := tx.Agent.GetByEventAndUser(ctx, eventID, user.ID)
	if err == nil {
		agent.DisplayName = displayName
		agent.AvatarURL = user.AvatarURL
		agent.IsActive = true
		if err := tx.Agent.Update(ctx, agent); err != nil {
			return nil, err
		}
		return agent, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	userID := user.ID
	agent = &domain.Agent{
		EventID:     eventID,
		UserID:      &userID,
		DisplayName: displayName,
		AvatarURL:   user.AvatarURL,
		IsActive:    true,
	}
	if err := tx.Agent.Create(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func agentDisplayName(user *domain.User) string {
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return "Agent"
}

// UploadCertification stores a certification image and returns its public URL
func (s *termsService) UploadCertification(ctx context.Context, filename string, r io.Reader) (string, error) {
	objectPath := storage.ObjectName("certs", path.Base(filename))
	if err := s.store.Put(ctx, storage.BucketVerifications, objectPath, r); err != nil {
		s.logger.Error("Failed to upload certification", zap.Error(err))
		return "", err
	}
	return s.store.PublicURL(storage.BucketVerifications, objectPath), nil
}
