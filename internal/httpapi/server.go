package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/storeauth"
	"github.com/MrEthical07/storeauth/catalog"
	"github.com/MrEthical07/storeauth/middleware"
)

const maxBodyBytes = 1 << 20

// Banner is served on GET / and GET /home.
const Banner = "storeauth: stores and items API"

// Auth is the slice of *storeauth.Engine the handlers call.
type Auth interface {
	middleware.Authorizer
	Register(ctx context.Context, username, password string) (storeauth.User, error)
	Login(ctx context.Context, username, password string) (storeauth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	GetUser(ctx context.Context, id int64) (storeauth.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Server holds the handler dependencies.
type Server struct {
	auth       Auth
	catalog    catalog.Repository
	logger     *zap.Logger
	metrics    http.Handler
	trustProxy bool
}

type Option func(*Server)

// WithLogger sets the request and error logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithTrustProxyHeaders makes the client IP come from the first
// X-Forwarded-For entry instead of the connection's remote address.
func WithTrustProxyHeaders(trust bool) Option {
	return func(s *Server) { s.trustProxy = trust }
}

func New(auth Auth, repo catalog.Repository, opts ...Option) *Server {
	s := &Server{
		auth:    auth,
		catalog: repo,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in request logging and client
// IP extraction.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	guard := middleware.Guard(s.auth, middleware.WithErrorHandler(s.writeError))
	protect := func(h http.HandlerFunc) http.Handler { return guard(h) }

	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /home", s.handleBanner)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.Handle("POST /logout", protect(s.handleLogout))
	mux.Handle("GET /user/{id}", protect(s.handleGetUser))
	mux.Handle("DELETE /user/{id}", protect(s.handleDeleteUser))

	mux.Handle("GET /store", protect(s.handleListStores))
	mux.Handle("POST /store", protect(s.handleCreateStore))
	mux.Handle("GET /store/{id}", protect(s.handleGetStore))
	mux.Handle("PUT /store/{id}", protect(s.handlePutStore))
	mux.Handle("DELETE /store/{id}", protect(s.handleDeleteStore))

	mux.Handle("GET /item", protect(s.handleListItems))
	mux.Handle("POST /item", protect(s.handleCreateItem))
	mux.Handle("GET /item/{id}", protect(s.handleGetItem))
	mux.Handle("PUT /item/{id}", protect(s.handlePutItem))
	mux.Handle("DELETE /item/{id}", protect(s.handleDeleteItem))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.logRequests(s.withClientIP(mux))
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Banner))
}
