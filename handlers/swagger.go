package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	doc := openAPIDoc()
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

func op(summary string, secured bool, responses ...string) gin.H {
	rs := gin.H{}
	for _, r := range responses {
		rs[r] = gin.H{"description": statusText(r)}
	}
	o := gin.H{"summary": summary, "responses": rs}
	if secured {
		o["security"] = []gin.H{{"bearerAuth": []string{}}}
	}
	return o
}

func statusText(code string) string {
	n, _ := strconv.Atoi(code)
	return http.StatusText(n)
}

func openAPIDoc() gin.H {
	paths := gin.H{
		"/auth/login":   gin.H{"post": op("Admin login", false, "200", "400", "401")},
		"/auth/refresh": gin.H{"post": op("Rotate refresh token", false, "200", "400", "401")},
		"/auth/logout":  gin.H{"post": op("Logout and revoke tokens", false, "200", "400")},
		"/auth/me":      gin.H{"get": op("Current admin", true, "200", "401")},

		"/api/public/overview":      gin.H{"get": op("Published counts and latest news", false, "200")},
		"/api/public/{kind}":        gin.H{"get": op("List published records", false, "200", "404")},
		"/api/public/{kind}/{slug}": gin.H{"get": op("Get published record by slug", false, "200", "404")},

		"/api/applications": gin.H{
			"post": op("Submit admission application", false, "201", "400", "413", "429"),
			"get":  op("List applications", true, "200", "401"),
		},
		"/api/applications/{id}": gin.H{
			"get":    op("Get application", true, "200", "401", "404"),
			"delete": op("Delete application", true, "204", "401", "404"),
		},
		"/api/applications/{id}/status":            gin.H{"patch": op("Set application status", true, "200", "400", "401", "404")},
		"/api/applications/{id}/files/{filename}": gin.H{"get": op("Download application document", true, "200", "401", "404")},

		"/uploads/{dir}/{filename}": gin.H{"get": op("Serve uploaded file", false, "200", "404")},
	}
	for _, k := range content.Kinds() {
		base := "/api/" + k.Name
		paths[base] = gin.H{
			"get":  op("List "+k.Label, false, "200"),
			"post": op("Create "+k.Label, true, "201", "400", "401", "413"),
		}
		paths[base+"/order"] = gin.H{"put": op("Reorder "+k.Label, true, "200", "400", "401", "404")}
		paths[base+"/{id}"] = gin.H{
			"get":    op("Get "+k.Label, false, "200", "404"),
			"patch":  op("Update "+k.Label, true, "200", "400", "401", "404"),
			"delete": op("Delete "+k.Label, true, "204", "401", "404"),
		}
		paths[base+"/{id}/files"] = gin.H{"post": op("Attach files to "+k.Label, true, "200", "400", "401", "404", "413")}
		paths[base+"/{id}/files/{filename}"] = gin.H{"delete": op("Remove file from "+k.Label, true, "200", "401", "404")}
	}
	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": "fishcollege-api", "version": "1.0.0"},
		"paths":   paths,
		"components": gin.H{
			"securitySchemes": gin.H{
				"bearerAuth": gin.H{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>fishcollege-api Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`
