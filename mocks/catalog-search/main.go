package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8081"
	defaultLatencyMs = "50"
)

// Product mirrors one record of the product search API.
type Product struct {
	ProductNumber   string `json:"ProductNumber"`
	ProductNameBold string `json:"ProductNameBold"`
	ProductNameThin string `json:"ProductNameThin"`
}

type searchResponse struct {
	ProductSearchResults []Product `json:"ProductSearchResults"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey     = os.Getenv("API_KEY")
	latencyMs  = getEnvInt("LATENCY_MS", defaultLatencyMs)
	queryParam = getEnv("QUERY_PARAM", "searchquery")
)

// catalog is the fixed product list served by the mock.
var catalog = []Product{
	{ProductNumber: "2525", ProductNameBold: "Baron de Ley", ProductNameThin: "Reserva 2004"},
	{ProductNumber: "252599", ProductNameBold: "Saintsbury", ProductNameThin: "Pinot Noir Carneros 2006"},
	{ProductNumber: "7710", ProductNameBold: "Chablis", ProductNameThin: "Domaine Laroche Saint Martin 2007"},
	{ProductNumber: "1", ProductNameBold: "Absolut Vodka", ProductNameThin: ""},
	{ProductNumber: "0123", ProductNameBold: "Leading Zero Lager", ProductNameThin: "Burk 33 cl"},
}

// Magic queries let e2e runs force failure paths.
var failingQueries = map[string]int{
	"5030": http.StatusServiceUnavailable,
	"5040": http.StatusGatewayTimeout,
	"4290": http.StatusTooManyRequests,
	"4040": http.StatusNotFound,
}

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/api/productsearch/search", handleSearch)
	http.HandleFunc("/search", handleSearch)

	log.Printf("Mock catalog search starting on port %s", port)
	log.Printf("Query parameter: %s", queryParam)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "catalog-search",
	})
}

// handleSearch matches loosely, like the real endpoint: any product whose
// number or name contains the query is returned.
func handleSearch(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("Incoming request: %s %s", r.Method, r.URL.RequestURI())

	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get(queryParam))
	if query == "" {
		sendError(w, queryParam+" is required", http.StatusBadRequest)
		return
	}
	if status, ok := failingQueries[query]; ok {
		sendError(w, "forced failure", status)
		return
	}

	hits := make([]Product, 0)
	needle := strings.ToLower(query)
	for _, p := range catalog {
		if strings.Contains(p.ProductNumber, query) || strings.Contains(strings.ToLower(p.ProductNameBold), needle) {
			hits = append(hits, p)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(searchResponse{ProductSearchResults: hits})
	log.Printf("Search %q returned %d hits", query, len(hits))
}

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
	log.Printf("Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
