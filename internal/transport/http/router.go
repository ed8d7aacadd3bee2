package http

import (
	"net/http"

	"github.com/currency-exchange-api/internal/application/auth"
	"github.com/currency-exchange-api/internal/application/calculator"
	"github.com/currency-exchange-api/internal/application/currency"
	"github.com/currency-exchange-api/internal/application/exchange"
	rateapp "github.com/currency-exchange-api/internal/application/rate"
	"github.com/currency-exchange-api/internal/application/user"
	"github.com/currency-exchange-api/internal/application/watchlist"
	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/transport/http/handler"
	appmiddleware "github.com/currency-exchange-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	optionalAuth := appmiddleware.OptionalAuth(deps.JWTProvider)

	// Applied to every endpoint that sends a code or checks a credential.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	calc := calculator.New(calculator.DefaultPolicy())
	rateSvc := rateapp.NewService(rateapp.ServiceDeps{
		Oracle:         deps.Oracle,
		Reservations:   deps.ReservationRepo,
		ReservationTTL: cfg.ReservationTTL,
	})
	calcSvc := calculator.NewService(calculator.ServiceDeps{Calculator: calc, Rates: rateSvc})
	exchangeSvc := exchange.NewService(exchange.ServiceDeps{
		Calculator:      calc,
		Rates:           rateSvc,
		TransactionRepo: deps.TransactionRepo,
		Receipts:        deps.Receipts,
		Events:          deps.Events,
	})
	currencySvc := currency.NewService(currency.ServiceDeps{CurrencyRepo: deps.CurrencyRepo})
	watchlistSvc := watchlist.NewService(watchlist.ServiceDeps{
		Rates:         rateSvc,
		WatchlistRepo: deps.WatchlistRepo,
		AlertRepo:     deps.RateAlertRepo,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		Codes:       deps.Codes,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		JWTProvider: deps.JWTProvider,
		CodeTTL:     cfg.VerificationCodeTTL,
		ExposeCodes: cfg.ExposeCodes,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		TransactionRepo: deps.TransactionRepo,
		WatchlistRepo:   deps.WatchlistRepo,
		AlertRepo:       deps.RateAlertRepo,
	})

	healthH := handler.NewHealthHandler()
	rateH := handler.NewRateHandler(rateSvc, cfg.RateStreamTick)
	calcH := handler.NewCalculateHandler(calcSvc)
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	currencyH := handler.NewCurrencyHandler(currencySvc)
	exchangeH := handler.NewExchangeHandler(exchangeSvc)
	watchlistH := handler.NewWatchlistHandler(watchlistSvc)

	r.NotFound(healthH.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", healthH.Index)
		r.Get("/health", healthH.Health)

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", rateH.List)
			r.Get("/test", rateH.TestConnection)
			r.Get("/historical", rateH.Historical)
			r.Get("/stream", rateH.Stream)
			r.Post("/calculate", calcH.Calculate)
			r.Post("/calculate/batch", calcH.Batch)
			r.Post("/calculate/reverse", calcH.Reverse)
			r.Post("/calculate/monitoring", calcH.Monitoring)
			r.Get("/{from}/{to}", rateH.Get)

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Post("/reserve", rateH.Reserve)
				r.Get("/reserve/{id}", rateH.GetReservation)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(sensitiveRL.Limit)
				r.Post("/register", authH.Register)
				r.Post("/login", authH.Login)
				r.Post("/send-email-code", authH.SendEmailCode)
				r.Post("/email-login", authH.EmailLogin)
				r.Post("/send-sms", authH.SendSMSCode)
				r.Post("/register-phone", authH.RegisterWithPhone)
				r.Post("/login-phone", authH.LoginWithPhone)
				r.Post("/reset-password", authH.ResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Get("/profile", userH.Profile)
				r.Put("/profile", userH.UpdateProfile)
				r.Put("/password", userH.ChangePassword)
				r.Get("/stats", userH.Stats)
			})
		})

		r.Route("/currencies", func(r chi.Router) {
			r.With(optionalAuth).Get("/", currencyH.List)
			r.Get("/{code}", currencyH.Get)

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
				r.Post("/", currencyH.Create)
				r.Put("/{code}", currencyH.Update)
				r.Delete("/{code}", currencyH.Delete)
			})
		})

		r.Route("/exchange", func(r chi.Router) {
			r.Use(authMw)
			r.Post("/", exchangeH.Perform)
			r.Get("/history", exchangeH.History)
			r.Get("/{id}", exchangeH.Get)
			r.Get("/{id}/receipt", exchangeH.Receipt)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Use(authMw)
			r.Get("/", watchlistH.List)
			r.Post("/", watchlistH.Add)
			r.Delete("/{id}", watchlistH.Remove)
			r.Get("/alerts", watchlistH.ListAlerts)
			r.Post("/alerts", watchlistH.SetAlert)
			r.Delete("/alerts/{from}/{to}", watchlistH.DeleteAlert)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
			r.Get("/verification/stats", authH.VerificationStats)
		})
	})

	return r
}
