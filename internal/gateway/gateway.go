// Package gateway serves a read-only HTTP view of program accounts.
package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/dsla"
	"github.com/danmuck/dslactl/internal/entity"
	"github.com/danmuck/dslactl/internal/observability"
	"github.com/danmuck/dslactl/internal/retrieval"
)

const Version = "0.1.0"

type Gateway struct {
	ID       string
	Addr     string
	Appeared time.Time

	client *dsla.Client
	router *gin.Engine
}

func New(id, addr string, corsOrigins []string, client *dsla.Client) *Gateway {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(corsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Gateway{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		client:   client,
		router:   r,
	}
}

func (g *Gateway) HTTPRouter() *gin.Engine {
	return g.router
}

func (g *Gateway) RegisterRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(g.Appeared).String(),
			"service": g.ID,
			"program": g.client.Program().String(),
			"version": Version,
		})
	})

	g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g.router.GET("/kinds", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"kinds": listKinds()})
	})

	g.router.GET("/accounts/:kind/:address", g.getAccount)
	g.router.POST("/decode", g.decode)
}

func (g *Gateway) Serve() error {
	g.RegisterRoutes()
	log.Info().Str("gateway", g.ID).Str("addr", g.Addr).Msg("gateway listening")
	return g.router.Run(g.Addr)
}

type KindInfo struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
	Body string `json:"body"`
}

func listKinds() []KindInfo {
	kinds := dsla.Accounts.Kinds()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindInfo{
			Name: k.Name,
			Tag:  base64.StdEncoding.EncodeToString(k.Tag[:]),
			Body: k.Body.String(),
		})
	}
	return out
}

type accountResponse struct {
	Kind    string          `json:"kind"`
	Address string          `json:"address,omitempty"`
	Account json.RawMessage `json:"account"`
}

func (g *Gateway) getAccount(c *gin.Context) {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	k, rec, err := g.client.FetchRecord(c.Request.Context(), c.Param("kind"), addr)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	if rec == nil {
		fail(c, http.StatusNotFound, errors.New("account not found"))
		return
	}
	body, err := k.ToJSON(rec)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse{Kind: k.Name, Address: addr.String(), Account: body})
}

type decodeRequest struct {
	Kind string `json:"kind"`
	Data string `json:"data" binding:"required"`
}

func (g *Gateway) decode(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	k, rec, err := dsla.DecodeAccount(strings.TrimSpace(req.Kind), raw)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	body, err := k.ToJSON(rec)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse{Kind: k.Name, Account: body})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dsla.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, retrieval.ErrForeignOwnedData):
		return http.StatusConflict
	case errors.Is(err, entity.ErrTypeMismatch),
		errors.Is(err, codec.ErrTruncatedBuffer),
		errors.Is(err, codec.ErrUnknownVariantDiscriminant),
		errors.Is(err, codec.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
