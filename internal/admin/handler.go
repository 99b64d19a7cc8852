// Package admin serves the operator dashboard API: statistics, user management,
// broadcasts, webhook registration and a persona chat playground.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// Dashboard actions.
const (
	ActionStats       = "stats"
	ActionGetUsers    = "get_users"
	ActionToggleBlock = "toggle_block"
	ActionBroadcast   = "broadcast"
	ActionSetWebhook  = "set_webhook"
)

// Identity statuses exposed to the dashboard.
const (
	StatusBlocked = "blocked"
	StatusActive  = "active"
)

const (
	usersPageSize   = 50
	unknownUsername = "Unknown"
	unknownName     = "User"
	unknownDate     = "N/A"
	dateLayout      = "2006-01-02"
	actionTimeout   = 2 * time.Minute
)

var errInvalidTarget = fmt.Errorf("unknown broadcast target: %w", errors.ErrInvalidInput)

type request struct {
	Action  string          `json:"action" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type toggleBlockPayload struct {
	UserID int64  `json:"userId" validate:"required"`
	Status string `json:"status" validate:"required,oneof=blocked active"`
	Kind   string `json:"kind" validate:"omitempty,oneof=user group"`
}

type broadcastPayload struct {
	Message string `json:"message" validate:"required"`
	Target  string `json:"target" validate:"omitempty,oneof=users groups all"`
}

type setWebhookPayload struct {
	Domain string `json:"domain" validate:"required,url"`
}

// Stats is the dashboard overview.
type Stats struct {
	TotalUsers   int64 `json:"totalUsers"`
	ActiveGroups int64 `json:"activeGroups"`
	BlockedUsers int64 `json:"blockedUsers"`
	TotalLogs    int64 `json:"totalLogs"`
}

// UserView is one row of the user table.
type UserView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Status    string `json:"status"`
	JoinedAt  string `json:"joinedAt"`
}

type successBody struct {
	Success bool `json:"success"`
}

type broadcastBody struct {
	Success bool `json:"success"`
	BroadcastResult
}

// actionError maps a failure onto an HTTP status.
type actionError struct {
	code int
	msg  string
}

func (e *actionError) Error() string { return e.msg }

func badRequest(msg string) error { return &actionError{code: http.StatusBadRequest, msg: msg} }

// Options configures the admin API.
type Options struct {
	OwnerID       int64
	WebhookPath   string
	WebhookSecret string
}

// Handler serves the single action endpoint.
type Handler struct {
	opts        Options
	store       ports.RepositoryProvider
	registrar   ports.WebhookRegistrar
	broadcaster *Broadcaster
	validate    *validator.Validate
	guard       guard
	logger      *zerolog.Logger
	actions     map[string]func(ctx context.Context, payload json.RawMessage) (any, error)
}

// NewHandler creates the admin endpoint. It returns an http.Handler with CORS and key checks applied.
func NewHandler(opts Options, store ports.RepositoryProvider, registrar ports.WebhookRegistrar, broadcaster *Broadcaster, logger *zerolog.Logger) http.Handler {
	h := &Handler{
		opts:        opts,
		store:       store,
		registrar:   registrar,
		broadcaster: broadcaster,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		guard:       newGuard(opts.OwnerID, logger),
		logger:      logger,
	}

	h.actions = map[string]func(ctx context.Context, payload json.RawMessage) (any, error){
		ActionStats:       h.stats,
		ActionGetUsers:    h.getUsers,
		ActionToggleBlock: h.toggleBlock,
		ActionBroadcast:   h.broadcast,
		ActionSetWebhook:  h.setWebhook,
	}

	return h.guard.wrap(h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "", badRequest(errMsgBadBody))

		return
	}

	action, ok := h.actions[req.Action]
	if !ok {
		h.respondError(w, req.Action, badRequest(errMsgInvalid))

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	result, err := action(ctx, req.Payload)
	if err != nil {
		h.respondError(w, req.Action, err)

		return
	}

	observability.AdminRequests.WithLabelValues(req.Action, strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var ae *actionError
	if errors.As(err, &ae) {
		code = ae.code
		msg = ae.msg
	} else {
		h.logger.Error().Err(err).Str("action", action).Msg("admin action failed")
	}

	if action == "" {
		action = "unknown"
	}

	observability.AdminRequests.WithLabelValues(action, strconv.Itoa(code)).Inc()
	writeError(w, code, msg)
}

func (h *Handler) decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return badRequest(errMsgBadBody)
	}

	if err := h.validate.Struct(dst); err != nil {
		return badRequest(fmt.Sprintf("Invalid payload: %v", err))
	}

	return nil
}

func (h *Handler) repo(ctx context.Context) (ports.Repository, error) {
	repo, err := h.store.Acquire(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrClientDisabled) {
			return nil, fmt.Errorf("POSTGRES_DSN is not configured: %w", err)
		}

		return nil, fmt.Errorf("database unavailable: %w", err)
	}

	return repo, nil
}

func (h *Handler) stats(ctx context.Context, _ json.RawMessage) (any, error) {
	repo, err := h.repo(ctx)
	if err != nil {
		return nil, err
	}

	return CollectStats(ctx, repo)
}

// CollectStats runs the overview counts concurrently.
func CollectStats(ctx context.Context, repo ports.Repository) (Stats, error) {
	blocked, unblocked := true, false

	var s Stats

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		s.TotalUsers, err = repo.CountIdentities(gctx, domain.IdentityFilter{Kind: domain.IdentityUser})

		return err
	})
	g.Go(func() (err error) {
		s.ActiveGroups, err = repo.CountIdentities(gctx, domain.IdentityFilter{Kind: domain.IdentityGroup, Blocked: &unblocked})

		return err
	})
	g.Go(func() (err error) {
		s.BlockedUsers, err = repo.CountIdentities(gctx, domain.IdentityFilter{Kind: domain.IdentityUser, Blocked: &blocked})

		return err
	})
	g.Go(func() (err error) {
		s.TotalLogs, err = repo.CountLogs(gctx)

		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}

	return s, nil
}

func (h *Handler) getUsers(ctx context.Context, _ json.RawMessage) (any, error) {
	repo, err := h.repo(ctx)
	if err != nil {
		return nil, err
	}

	users, err := repo.ListRecentIdentities(ctx, domain.IdentityFilter{Kind: domain.IdentityUser}, usersPageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}

	return views, nil
}

func toUserView(u domain.Identity) UserView {
	v := UserView{
		ID:        u.ExternalID,
		Username:  u.Handle,
		FirstName: u.DisplayName,
		Status:    StatusActive,
		JoinedAt:  unknownDate,
	}

	if v.Username == "" {
		v.Username = unknownUsername
	}

	if v.FirstName == "" {
		v.FirstName = unknownName
	}

	if u.Blocked {
		v.Status = StatusBlocked
	}

	if !u.LastSeenAt.IsZero() {
		v.JoinedAt = u.LastSeenAt.UTC().Format(dateLayout)
	}

	return v
}

func (h *Handler) toggleBlock(ctx context.Context, payload json.RawMessage) (any, error) {
	var p toggleBlockPayload
	if err := h.decode(payload, &p); err != nil {
		return nil, err
	}

	repo, err := h.repo(ctx)
	if err != nil {
		return nil, err
	}

	kind := domain.IdentityUser
	if p.Kind != "" {
		kind = domain.IdentityKind(p.Kind)
	}

	found, err := repo.SetBlocked(ctx, kind, p.UserID, p.Status == StatusBlocked)
	if err != nil {
		return nil, fmt.Errorf("set blocked: %w", err)
	}

	if !found {
		return nil, &actionError{code: http.StatusNotFound, msg: fmt.Sprintf("%s %d not found", kind, p.UserID)}
	}

	h.logger.Info().Int64("user_id", p.UserID).Str("kind", string(kind)).Str("status", p.Status).Msg("identity block status changed")

	return successBody{Success: true}, nil
}

func (h *Handler) broadcast(ctx context.Context, payload json.RawMessage) (any, error) {
	var p broadcastPayload
	if err := h.decode(payload, &p); err != nil {
		return nil, err
	}

	repo, err := h.repo(ctx)
	if err != nil {
		return nil, err
	}

	recipients, err := h.broadcaster.Recipients(ctx, repo, p.Target)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidInput) {
			return nil, badRequest(err.Error())
		}

		return nil, err
	}

	res := h.broadcaster.Send(ctx, p.Message, recipients)

	return broadcastBody{Success: true, BroadcastResult: res}, nil
}

// WebhookURL joins the public base URL with the webhook path.
func WebhookURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

func (h *Handler) setWebhook(ctx context.Context, payload json.RawMessage) (any, error) {
	var p setWebhookPayload
	if err := h.decode(payload, &p); err != nil {
		return nil, err
	}

	url := WebhookURL(p.Domain, h.opts.WebhookPath)

	h.logger.Info().Str("url", url).Msg("registering webhook")

	res, err := h.registrar.SetWebhook(ctx, url, h.opts.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("register webhook: %w", err)
	}

	return res, nil
}
