package web

import (
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// DocsPath is where the interactive API documentation is mounted.
const DocsPath = "/swagger"

// SwaggerServer serves the OpenAPI document registered by package docs
// together with the Swagger UI assets.
type SwaggerServer struct {
	enabled bool
	handler gin.HandlerFunc
}

func NewSwaggerServer(enabled bool) *SwaggerServer {
	s := &SwaggerServer{enabled: enabled}
	if enabled {
		s.handler = ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.InstanceName(swag.Name),
			ginSwagger.URL(DocsPath+"/doc.json"),
			ginSwagger.DocExpansion("list"),
			ginSwagger.DefaultModelsExpandDepth(1),
		)
	}
	return s
}

// RegisterRoutes mounts the UI on router. The story endpoints stay usable
// when the UI is disabled.
func (s *SwaggerServer) RegisterRoutes(router gin.IRouter) {
	if !s.enabled {
		log.Println("Swagger UI is disabled")
		return
	}

	router.GET(DocsPath+"/*any", s.handler)
	log.Printf("Swagger UI available at %s/index.html", DocsPath)
}
