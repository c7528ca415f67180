// Package lambdaproxy runs the HTTP router inside AWS Lambda behind API Gateway.
package lambdaproxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"api/utils"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"
)

// ErrUnknownEvent is returned for events that are neither REST nor HTTP API proxy events
var ErrUnknownEvent = errors.New("unsupported API Gateway event")

// RouterFunc builds the HTTP handler served by the function
type RouterFunc func() (http.Handler, error)

// Handler proxies API Gateway events to one lazily built router. The router is
// built on the first invocation and reused by every later invocation of the
// same execution environment. A failed build is retried by the next invocation.
type Handler struct {
	build RouterFunc

	mu sync.Mutex
	v1 *httpadapter.HandlerAdapter
	v2 *httpadapter.HandlerAdapterV2
}

// NewHandler creates a handler around build
func NewHandler(build RouterFunc) *Handler {
	return &Handler{build: build}
}

func (h *Handler) init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.v1 != nil {
		return nil
	}

	router, err := h.build()
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	h.v1 = httpadapter.New(router)
	h.v2 = httpadapter.NewV2(router)
	utils.Logger.Info("Lambda router initialized")
	return nil
}

// Handle serves one REST (v1) or HTTP API (v2) proxy event and returns its buffered response
func (h *Handler) Handle(ctx context.Context, req *core.SwitchableAPIGatewayRequest) (*core.SwitchableAPIGatewayResponse, error) {
	if err := h.init(); err != nil {
		utils.Logger.Error("Lambda router unavailable", zap.Error(err))
		return nil, err
	}
	if req == nil {
		return nil, ErrUnknownEvent
	}

	if event := req.Version2(); event != nil {
		resp, err := h.v2.ProxyWithContext(ctx, *event)
		if err != nil {
			utils.Logger.Error("Failed to proxy HTTP API event",
				zap.String("route_key", event.RouteKey),
				zap.Error(err),
			)
			return nil, err
		}
		return core.NewSwitchableAPIGatewayResponseV2(&resp), nil
	}

	if event := req.Version1(); event != nil {
		resp, err := h.v1.ProxyWithContext(ctx, *event)
		if err != nil {
			utils.Logger.Error("Failed to proxy REST API event",
				zap.String("path", event.Path),
				zap.Error(err),
			)
			return nil, err
		}
		return core.NewSwitchableAPIGatewayResponseV1(&resp), nil
	}

	return nil, ErrUnknownEvent
}

// Start hands the handler to the Lambda runtime. It does not return.
func (h *Handler) Start() {
	lambda.Start(h.Handle)
}
