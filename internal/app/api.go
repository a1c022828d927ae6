package app

import (
	"net/http"
	"strings"

	"trade-alert-backend/listener"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TokenCache is the read side of *listener.TokenResolver.
type TokenCache interface {
	Get(token common.Address) (*listener.TokenInfo, bool)
	Snapshot() []*listener.TokenInfo
}

// Deps API'nin okuduğu bileşenler
type Deps struct {
	Stats      *listener.Stats
	Tokens     TokenCache
	Dispatcher listener.DispatchSource
	Book       *listener.AddressBook
	Gatherer   prometheus.Gatherer
}

// SetupAPI HTTP API endpoint'lerini kurar
func SetupAPI(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "trade-alert-backend",
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		resp := gin.H{"success": true, "pipeline": d.Stats.Snapshot()}
		if d.Dispatcher != nil {
			resp["webhook"] = d.Dispatcher.Stats()
		}
		if d.Book != nil {
			resp["watchedWallets"] = len(d.Book.Watched())
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/tokens", func(c *gin.Context) {
		items := d.Tokens.Snapshot()
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "items": items})
	})

	r.GET("/tokens/:address", func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("address"))
		if !common.IsHexAddress(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "geçersiz adres"})
			return
		}
		info, ok := d.Tokens.Get(common.HexToAddress(raw))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "token önbellekte yok"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
