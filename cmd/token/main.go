// Command token issues an identity token for local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/naryasomayaj/group-activity-planner/internal/config"
	service_identity "github.com/naryasomayaj/group-activity-planner/internal/service/auth/identity"
)

func main() {
	subject := flag.String("sub", "", "user id to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	cfg := config.Load()

	if *subject == "" {
		log.Fatal("-sub is required")
	}

	token, err := service_identity.New(cfg.Auth.Secret, cfg.Auth.Issuer).Issue(*subject, *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
