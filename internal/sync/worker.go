// Package sync implements the authorization-claims synchronization engine:
// asynq consumers that keep the identity provider's custom claims consistent
// with domain events from the user, business and role-administration
// services.
//
// Two consumer families with distinct failure policies live here. Event
// consumers (events.go) return errors to the queue so transient failures are
// redelivered. Command consumers (commands.go) acknowledge everything they
// can and report outcomes through the reply store instead.
package sync

import (
	"context"
	"crypto/tls"
	"fmt"

	"dinescout_backend/internal/audit"
	"dinescout_backend/internal/identity"
	"dinescout_backend/internal/roles"
	"dinescout_backend/platform/config"
	"dinescout_backend/platform/logger"
	"dinescout_backend/platform/validator"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// AuditRecorder records applied intents. Implementations must be safe for
// concurrent use; a nil recorder disables the trail.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Worker runs the claims-sync consumers on an asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux

	provider identity.Provider
	lookup   roles.Lookup
	audit    AuditRecorder
	replies  *ReplyStore
	limiter  *rate.Limiter
	val      *validator.Validator
	log      *logger.Logger

	searchPageSize int
}

// NewWorker wires the asynq server, the reply store and all consumers.
func NewWorker(cfg config.SyncConfig, provider identity.Provider, lookup roles.Lookup, auditRepo AuditRecorder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		server:         server,
		mux:            asynq.NewServeMux(),
		provider:       provider,
		lookup:         lookup,
		audit:          auditRepo,
		replies:        NewReplyStore(redis.NewClient(redisOpt), cfg.GetReplyTTL()),
		limiter:        rate.NewLimiter(rate.Limit(cfg.GetListRateLimit()), 1),
		val:            validator.New(),
		log:            log,
		searchPageSize: cfg.GetSearchPageSize(),
	}
	w.registerHandlers()

	return w, nil
}

func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TaskUserCreated, w.handleUserCreated)
	w.mux.HandleFunc(TaskUserDeleted, w.handleUserDeleted)
	w.mux.HandleFunc(TaskBusinessActivated, w.handleBusinessActivated)
	w.mux.HandleFunc(TaskBusinessDeactivated, w.handleBusinessDeactivated)
	w.mux.HandleFunc(TaskRoleChanged, w.handleRoleChanged)

	w.mux.HandleFunc(TaskCmdEnableUser, w.handleEnableUser)
	w.mux.HandleFunc(TaskCmdDisableUser, w.handleDisableUser)
	w.mux.HandleFunc(TaskCmdDeleteUser, w.handleDeleteUser)
	w.mux.HandleFunc(TaskCmdUpdateUser, w.handleUpdateUser)
	w.mux.HandleFunc(TaskCmdAddRole, w.handleAddRole)
	w.mux.HandleFunc(TaskCmdRemoveRole, w.handleRemoveRole)
	w.mux.HandleFunc(TaskCmdGetUserRoles, w.handleGetUserRoles)
	w.mux.HandleFunc(TaskCmdGetUserStatus, w.handleGetUserStatus)
	w.mux.HandleFunc(TaskCmdSearchUsers, w.handleSearchUsers)
}

// Run blocks until ctx is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("claims-sync worker stopped", "error", err)
	}
}

// Close releases the reply store's redis client. Call after Run returns.
func (w *Worker) Close() error {
	if w == nil || w.replies == nil {
		return nil
	}
	return w.replies.Close()
}

// Replies exposes the reply store so callers co-hosted with the worker can
// fetch command outcomes.
func (w *Worker) Replies() *ReplyStore {
	return w.replies
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
