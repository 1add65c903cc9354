package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMaxRequestSize_BulkPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(MaxRequestSize(1024)) // 1KB limit
	router.POST("/api/automation/bulk", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(200, gin.H{"size": len(body)})
	})

	// A normal bulk request fits comfortably.
	smallBody := `{"job_urls":["https://jobs.example.com/1","https://jobs.example.com/2"],"resume_path":"resume.pdf"}`
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("POST", "/api/automation/bulk", bytes.NewBufferString(smallBody))
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// An oversized payload trips the reader limit.
	largeBody := `{"job_urls":["https://jobs.example.com/` + strings.Repeat("x", 2000) + `"]}`
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/api/automation/bulk", bytes.NewBufferString(largeBody))
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w2.Code)
}

func TestValidateJSON_SessionRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ValidateJSON())
	router.POST("/api/automation/sessions", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})
	router.GET("/api/automation/sessions/:id", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})
	router.OPTIONS("/api/automation/sessions", func(c *gin.Context) {
		c.Status(204)
	})

	sessionBody := `{"job_url":"https://jobs.example.com/1","resume_path":"resume.pdf"}`

	// POST with JSON content type
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("POST", "/api/automation/sessions", bytes.NewBufferString(sessionBody))
	req1.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// POST without content type
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/api/automation/sessions", bytes.NewBufferString(sessionBody))
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
	assert.Contains(t, w2.Body.String(), "Content-Type must be application/json")

	// Content type with charset parameter still passes
	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest("POST", "/api/automation/sessions", bytes.NewBufferString(sessionBody))
	req3.Header.Set("Content-Type", "application/json; charset=utf-8")
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)

	// Status polling (GET) skips validation
	w4 := httptest.NewRecorder()
	req4, _ := http.NewRequest("GET", "/api/automation/sessions/abc", nil)
	router.ServeHTTP(w4, req4)
	assert.Equal(t, http.StatusOK, w4.Code)

	// CORS preflight (OPTIONS) skips validation
	w5 := httptest.NewRecorder()
	req5, _ := http.NewRequest("OPTIONS", "/api/automation/sessions", nil)
	router.ServeHTTP(w5, req5)
	assert.Equal(t, http.StatusNoContent, w5.Code)
}

func TestSanitizeInput_QueryParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SanitizeInput())
	router.GET("/api/applications", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": c.Query("status")})
	})

	// Null byte removal
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/api/applications?status=sub%00mitted", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Contains(t, w1.Body.String(), "submitted")

	// Whitespace trimming
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/api/applications?status=%20%20error%20%20", nil)
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"error"`)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "form_filled", sanitizeString("form_\x00filled"))
	assert.Equal(t, "ready_to_fill", sanitizeString("  ready_to_fill  "))
	assert.Equal(t, "submitted", sanitizeString("  sub\x00mitted  "))

	long := strings.Repeat("a", 11000)
	assert.Equal(t, 10000, len(sanitizeString(long)))
}
