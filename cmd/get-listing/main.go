package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/hawraz/carsell-flow/config"
	"github.com/hawraz/carsell-flow/internal/marketplace"
)

func main() {
	var listingID int64

	flag.Int64Var(&listingID, "id", 0, "Listing ID to fetch")
	flag.Parse()

	// Accept listing ID as positional argument
	if listingID == 0 && flag.NArg() > 0 {
		if id, err := strconv.ParseInt(flag.Arg(0), 10, 64); err == nil {
			listingID = id
		}
	}

	if listingID == 0 {
		fmt.Fprintf(os.Stderr, "Usage: get-listing -id <listing_id>\n")
		fmt.Fprintf(os.Stderr, "       get-listing <listing_id>\n")
		os.Exit(1)
	}

	config.LoadEnvFile()

	apiURL := os.Getenv("CARSELL_API_URL")
	if apiURL == "" {
		fmt.Fprintf(os.Stderr, "CARSELL_API_URL not set\n")
		os.Exit(1)
	}

	client := marketplace.NewClient(marketplace.ClientOpts{
		BaseURL: apiURL,
		Auth:    os.Getenv("CARSELL_API_TOKEN"),
	})

	listing, err := client.GetListing(context.Background(), listingID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching listing %d: %v\n", listingID, err)
		os.Exit(1)
	}

	// Pretty print as JSON
	output, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
