// Command tokengen issues owner tokens for the tailorkeeper client. Sign-in
// is handled outside tailorkeeper; this tool stands in for it.
//
//	tokengen -owner ama@example.com -s secretKey -ttl 720h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/tailorkeeper/internal/auth"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/config"
)

func main() {
	var defaults config.Config
	defaults.LoadDefaults()

	owner := flag.String("owner", "", "owner id the token is issued for")
	secret := flag.String("s", defaults.SecretKey, "JWT HMAC secret key (must match the server)")
	ttl := flag.Duration("ttl", 0, "token validity; 0 issues a token without expiry")
	flag.Parse()

	if *owner == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, err := auth.GenerateToken(*owner, []byte(*secret), *ttl)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(token)
}
