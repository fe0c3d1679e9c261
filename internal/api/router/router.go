package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/vtonlab/vton-service/internal/api/handlers/vton"
	"github.com/vtonlab/vton-service/internal/middleware"
)

func Setup(h *vton.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/", h.Root)       // welcome payload
	r.POST("/vton", h.TryOn) // synchronous try-on

	jobs := r.Group("/vton/jobs")

	jobs.POST("", h.EnqueueJob) // admit a job to the queue
	jobs.GET("/:id", h.GetJob)  // poll a job's status and result

	return r
}
