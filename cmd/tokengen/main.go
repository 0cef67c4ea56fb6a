// Package main provides a CLI tool for generating test bearer tokens accepted
// by the local heart backend. These tokens use the dev signing key and will
// NOT work against a deployed backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "medinauts/internal/jwt_token"
)

const (
	// Dev signing key - matches the backend when SECRET_KEY is not set
	devSigningKey = "supersecretkey123"

	defaultUser = "demo"
)

type tokenOutput struct {
	Token     string            `json:"access_token"`
	Type      string            `json:"token_type"`
	ExpiresIn string            `json:"expires_in"`
	Subject   string            `json:"sub"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	accessCmd := flag.NewFlagSet("access", flag.ExitOnError)
	accessUser := accessCmd.String("user", defaultUser, "Username placed in the sub claim")
	accessTTL := accessCmd.Duration("ttl", jwttoken.DefaultTTL, "Token time-to-live")
	accessKey := accessCmd.String("key", "", "Signing key (default: SECRET_KEY or the dev key)")
	accessJSON := accessCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "access":
		accessCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateAccessToken(*accessUser, *accessTTL, signingKey(*accessKey), *accessJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test tokens for the Medinauts backend

WARNING: These tokens use the dev signing key and will NOT work in production.
         Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  access    Generate an access token (JWT, HS256)

Examples:
  # Generate access token with defaults
  tokengen access

  # Generate a short-lived token for a specific user
  tokengen access -user "dr.who" -ttl 1m

  # Store it where the intake CLI reads it
  intake login --token "$(tokengen access -json | jq -r .access_token)"

Use "tokengen <command> -h" for more information about a command.`)
}

func signingKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		return v
	}
	return devSigningKey
}

func generateAccessToken(user string, ttl time.Duration, key string, jsonOutput bool) {
	svc := jwttoken.NewJWTService(key, ttl)
	token, err := svc.GenerateAccessToken(user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "bearer",
			ExpiresIn: svc.TTL().String(),
			Subject:   user,
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Subject:     %s\n", user)
	fmt.Printf("Expires In:  %s\n", svc.TTL())
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" -X POST http://localhost:8080/intake/sessions/<id>/submit")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
