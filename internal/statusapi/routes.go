package statusapi

import (
	"net/http"
	"time"

	"github.com/danmuck/tramdash/internal/auth"
	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TramView is the JSON shape of one tram. Unset fields are omitted.
type TramView struct {
	ID             string    `json:"id"`
	Location       *string   `json:"location,omitempty"`
	PassengerCount *string   `json:"passenger_count,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func viewOf(t fleet.TramRecord) TramView {
	v := TramView{ID: t.ID, UpdatedAt: t.UpdatedAt}
	if t.HasLocation {
		loc := t.Location
		v.Location = &loc
	}
	if t.HasPassengerCount {
		n := t.PassengerCount
		v.PassengerCount = &n
	}
	return v
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"trams":   s.source.Len(),
			"version": s.source.Version(),
		}
		if s.state != nil {
			body["feed"] = s.state()
		}
		c.JSON(http.StatusOK, body)
	})

	guarded := s.router.Group("/")
	if s.guard != nil {
		guarded.Use(requireToken(s.guard))
	}

	guarded.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	guarded.GET("/trams", func(c *gin.Context) {
		snapshot := s.source.Snapshot()
		views := make([]TramView, 0, len(snapshot))
		for _, t := range snapshot {
			views = append(views, viewOf(t))
		}
		c.JSON(http.StatusOK, gin.H{"trams": views})
	})

	guarded.GET("/trams/:id", func(c *gin.Context) {
		t, ok := s.source.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "tram not found"})
			return
		}
		c.JSON(http.StatusOK, viewOf(t))
	})
}

func requireToken(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			err = v.Validate(token)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
