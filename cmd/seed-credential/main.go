package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
)

// Creates an API credential for an organization and prints the generated
// secret once. The secret is stored only as a bcrypt hash.
func main() {
	orgID := flag.String("org-id", "", "Organization id to issue the credential for (required)")
	clientID := flag.String("client-id", "", "Client id; generated when empty")
	role := flag.String("role", "service", "Role embedded in minted tokens")
	flag.Parse()

	if strings.TrimSpace(*orgID) == "" {
		fmt.Fprintln(os.Stderr, "-org-id is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	cid := strings.TrimSpace(*clientID)
	if cid == "" {
		cid = "grc-" + randomHex(8)
	}
	secret := randomHex(24)

	cred, err := models.CreateApiCredential(ctx, strings.TrimSpace(*orgID), cid, secret, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create credential: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("credential id: %d\n", cred.ID)
	fmt.Printf("client id:     %s\n", cred.ClientId)
	fmt.Printf("client secret: %s\n", secret)
	fmt.Println("store the secret now; it is not retrievable later")
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate random bytes: %v\n", err)
		os.Exit(1)
	}
	return hex.EncodeToString(b)
}
