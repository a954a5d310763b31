package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/arnavshah/roster-solver-go/internal/config"
	"github.com/arnavshah/roster-solver-go/pkg/auth"
)

func main() {
	config.LoadEnv()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	userID := os.Args[1]
	if strings.Contains(userID, ".") {
		fmt.Println("Error: userID may not contain '.'")
		os.Exit(1)
	}
	secret := os.Getenv("API_MASTER_SECRET")
	if secret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in environment or .env")
		os.Exit(1)
	}

	key := auth.NewService("", secret).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, key)
}
