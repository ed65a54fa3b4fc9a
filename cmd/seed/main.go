// Command seed grants purchases directly in the purchase store, for comps and
// for preparing test accounts. Items are checked against the catalog first.
//
//	seed -config config.yaml -user 1234567 -type book -content book-42,go-intro
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"content-marketplace/internal/config"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/infra/adapters/catalog"
	"content-marketplace/internal/infra/db"
	"content-marketplace/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	user := flag.String("user", "", "user identifier to grant to")
	contentType := flag.String("type", string(model.ContentTypeBook), "content type: article or book")
	content := flag.String("content", "", "comma-separated content ids")
	price := flag.Bool("price", false, "record the catalog price instead of 0")
	devMode := flag.Bool("dev", false, "load the config in developer mode")
	flag.Parse()

	if *user == "" || *content == "" {
		log.Fatal("-user and -content are required")
	}
	ct := model.ContentType(*contentType)
	if !ct.Valid() {
		log.Fatalf("unknown content type %q", *contentType)
	}

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("purchase store: %v", err)
	}
	defer store.Close()
	cat := catalog.NewGitHubCatalog(cfg.Catalog)

	for _, id := range strings.Split(*content, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		item, err := cat.Lookup(ctx, ct, id)
		if err != nil {
			log.Fatalf("lookup %s %q: %v", ct, id, err)
		}
		var amount int64
		if *price {
			amount = item.Price
		}
		rec, err := model.NewPurchaseRecord("", *user, item.ID, "", amount)
		if err != nil {
			log.Fatalf("purchase %q: %v", id, err)
		}
		res, err := store.Purchases.Insert(ctx, rec)
		if err != nil {
			log.Fatalf("insert %q: %v", id, err)
		}
		fmt.Printf("%s: %s (amount=%d)\n", item.ID, res.Status, amount)
	}
}
