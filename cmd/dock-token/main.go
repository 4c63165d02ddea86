package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/muelle-planner/platform/pkg/common/auth"
	"github.com/muelle-planner/platform/pkg/common/config"
)

// dock-token issues API tokens signed with API_JWT_SECRET.
func main() {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "sub", "", "token subject, usually the operator name")
	flag.StringVar(&role, "role", "operator", "role claim")
	flag.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}

	cfg := config.Load()
	manager, err := auth.NewJWTManager(cfg.APIJWTSecret, cfg.APIJWTIssuer, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwt: %v\n", err)
		os.Exit(1)
	}
	token, err := manager.IssueToken(subject, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
