package server

import (
	"context"
	"io"

	v1 "credit-service/api/credit/v1"
	"credit-service/internal/conf"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// OperationStripeWebhook names the raw webhook route for middleware.
	OperationStripeWebhook = "/api.credit.v1.WebhookService/Stripe"

	// Stripe never sends more than this.
	maxWebhookBody = 64 << 10
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	c *conf.Bootstrap,
	credit *service.CreditService,
	admin *service.AdminService,
	hook *service.WebhookService,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Server.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)
	v1.RegisterCreditServiceHTTPServer(srv, credit)
	v1.RegisterAdminServiceHTTPServer(srv, admin)

	// the signature covers the exact bytes, so this route skips request decoding
	srv.Route("/").POST("/v1/webhooks/stripe", stripeWebhookHandler(hook))
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}

func stripeWebhookHandler(hook *service.WebhookService) http.HandlerFunc {
	return func(ctx http.Context) error {
		req := ctx.Request()
		payload, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
		if err != nil {
			return creditErrors.InvalidEvent("read webhook body: %v", err)
		}
		signature := req.Header.Get("Stripe-Signature")

		http.SetOperation(ctx, OperationStripeWebhook)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return hook.HandleStripe(ctx, payload, signature)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
