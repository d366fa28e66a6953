package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/saleor-apps/openweb3-payment/internal/apl"
	"github.com/saleor-apps/openweb3-payment/internal/application/account"
	"github.com/saleor-apps/openweb3-payment/internal/application/payment"
	"github.com/saleor-apps/openweb3-payment/internal/application/verification"
	"github.com/saleor-apps/openweb3-payment/internal/config"
	jwtinfra "github.com/saleor-apps/openweb3-payment/internal/infrastructure/jwt"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/smtp"
	"github.com/saleor-apps/openweb3-payment/internal/transport/http/handler"
	appmiddleware "github.com/saleor-apps/openweb3-payment/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Store           apl.APL
	Saleor          *saleor.Client
	Mailer          smtp.Mailer
	Codes           *verification.CodeCache
	JWTProvider     *jwtinfra.Provider
	WebhookVerifier *openweb3.WebhookVerifier
	Logger          zerolog.Logger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://" + cfg.SessionDomain},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "platform"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	accountSvc := account.NewService(
		deps.Saleor, deps.Codes, deps.Mailer, deps.JWTProvider,
		cfg.TelegramBotToken, cfg.SaleorUserPassword, deps.Logger)

	configMgr := payment.NewConfigManager(deps.Saleor, deps.Logger)
	orderFactory := func(publishableKey, secretKey string) payment.OrderAPI {
		return openweb3.NewClient(publishableKey, secretKey, cfg.Openweb3BaseURL, deps.Logger)
	}
	paymentSvc := payment.NewService(configMgr, orderFactory, deps.Saleor, cfg.TelegramMiniAppURL, deps.Logger)

	healthH := handler.NewHealthHandler(deps.Store)
	manifestH := handler.NewManifestHandler(cfg.AppBaseURL)
	registerH := handler.NewRegisterHandler(deps.Store, deps.Saleor, cfg.SaleorAPIURL, deps.Logger)
	authH := handler.NewAuthHandler(accountSvc, cfg.SaleorAPIURL, cfg.SessionDomain, deps.Logger)
	emailH := handler.NewEmailHandler(accountSvc, deps.Logger)
	saleorWebhookH := handler.NewSaleorWebhookHandler(paymentSvc, configMgr, deps.Logger)
	openweb3WebhookH := handler.NewOpenweb3WebhookHandler(deps.WebhookVerifier, paymentSvc, deps.Logger)
	configH := handler.NewConfigHandler(configMgr, deps.Logger)

	// 1 request/second with a small burst — verification emails are easy
	// to abuse.
	sendcodeRL := appmiddleware.NewRateLimiter(rate.Limit(1), 3)

	r.Get("/healthz", healthH.Check)

	r.Route("/api", func(r chi.Router) {
		r.Get("/manifest", manifestH.Get)
		r.Post("/register", registerH.Register)

		// ── Storefront routes (platform whitelist) ───────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Platform)
			r.Post("/auth", authH.Authenticate)
			r.With(sendcodeRL.Limit).Post("/email/sendcode", emailH.SendCode)
			r.Post("/email/bind", emailH.Bind)
			r.Post("/bindemail", emailH.BindDirect)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Route("/saleor", func(r chi.Router) {
				r.Post("/payment-gateway-initialize-session", saleorWebhookH.PaymentGatewayInitialize)
				r.Post("/transaction-initialize-session", saleorWebhookH.InitializeSession)
				r.Post("/transaction-process-session", saleorWebhookH.ProcessSession)
				r.Post("/transaction-charge-requested", saleorWebhookH.ChargeRequested)
				r.Post("/transaction-refund-requested", saleorWebhookH.RefundRequested)
				r.Post("/transaction-cancelation-requested", saleorWebhookH.CancelRequested)
			})
			r.Post("/openweb3", openweb3WebhookH.Handle)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", configH.Get)
			r.Post("/entries", configH.AddEntry)
			r.Put("/entries/{id}", configH.UpdateEntry)
			r.Delete("/entries/{id}", configH.DeleteEntry)
			r.Put("/channels/{channelId}", configH.MapChannel)
		})
	})

	return r
}
