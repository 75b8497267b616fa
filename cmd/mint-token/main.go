// Command mint-token signs an access token for an account, for local use
// against a server sharing the same JWT settings.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "vatgate/internal/jwt_token"
	"vatgate/internal/platform/config"
	id "vatgate/pkg/domain"
)

func main() {
	account := flag.String("account", "", "account ID to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*account, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "mint-token:", err)
		os.Exit(1)
	}
}

func run(account string, ttl time.Duration) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	accountID, err := id.ParseAccountID(account)
	if err != nil {
		return err
	}
	svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	token, err := svc.GenerateAccessToken(accountID, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
