// Command heart-backend is a local stand-in for the Medinauts backend: it
// issues tokens, extracts fields from uploads, predicts and stores feedback.
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	jwttoken "medinauts/internal/jwt_token"
	"medinauts/internal/platform/logger"
)

const (
	defaultPort       = "8000"
	defaultSecretKey  = "supersecretkey123"
	defaultLatencyMs  = 100
	readHeaderTimeout = 10 * time.Second
)

func main() {
	log := logger.New(getEnv("LOG_LEVEL", "info"))
	port := getEnv("PORT", defaultPort)
	latency := time.Duration(getEnvInt("LATENCY_MS", defaultLatencyMs)) * time.Millisecond

	opts := []Option{WithLatency(latency)}
	if stage := os.Getenv("FIXED_STAGE"); stage != "" {
		s, _ := strconv.Atoi(stage)
		score, _ := strconv.ParseFloat(getEnv("FIXED_SCORE", "0"), 64)
		opts = append(opts, WithFixedPrediction(s, score))
		log.Info("predictions fixed", "stage", s, "risk_score", score)
	}

	tokens := jwttoken.NewJWTService(getEnv("SECRET_KEY", defaultSecretKey), jwttoken.DefaultTTL)
	b := newBackend(log, tokens, opts...)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           b.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	log.Info("mock heart backend starting", "port", port, "latency", latency)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
