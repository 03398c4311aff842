// Command qualify runs the audience qualification pipeline for a single line
// item and prints the result as JSON. It is an operator tool: the line item
// configuration is supplied as a JSON file, the stores come from config.yaml
// with .env overrides.
//
// Usage:
//
//	qualify -config config/config.yaml -line-item li.json [-op counts|entities|metrics]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-report/internal/cache"
	"github.com/ignite/audience-report/internal/config"
	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/repository/postgres"
	"github.com/ignite/audience-report/internal/service/qualification"
	"github.com/ignite/audience-report/internal/service/report"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	lineItemPath := flag.String("line-item", "", "path to line item JSON file")
	op := flag.String("op", "counts", "operation: counts, entities, or metrics")
	sortBy := flag.String("sort", "", "metrics sort: deployment, identities, or clicks")
	flag.Parse()

	if *lineItemPath == "" {
		log.Fatal("missing required flag: -line-item")
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	li, err := loadLineItem(*lineItemPath)
	if err != nil {
		log.Fatalf("Failed to load line item: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	svc := qualification.NewService(qualification.Repositories{
		Orders:          postgres.NewOrderRepo(db),
		Customers:       postgres.NewCustomerRepo(db),
		DeploymentURLs:  postgres.NewDeploymentURLRepo(db),
		Clicks:          postgres.NewClickRepo(db),
		Identities:      postgres.NewIdentityRepo(db),
		ExcludedDomains: postgres.NewExcludedDomainRepo(db),
	})

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		svc.UseCountCache(cache.NewCountStore(client, cfg.Redis.CountTTL()))
	}

	ctx := context.Background()
	var result interface{}

	switch *op {
	case "counts":
		result, err = svc.QualifiedIdentityCount(ctx, li)
	case "entities":
		result, err = svc.ActiveIdentityEntities(ctx, li)
	case "metrics":
		result, err = runMetrics(ctx, svc, li, pickSort(*sortBy, cfg.Report.DefaultSort))
	default:
		log.Fatalf("Unknown operation: %s", *op)
	}
	if err != nil {
		log.Fatalf("Operation %s failed: %v", *op, err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

func loadLineItem(path string) (*domain.LineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var li domain.LineItem
	if err := json.Unmarshal(data, &li); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &li, nil
}

func pickSort(requested, fallback string) report.Sort {
	name := requested
	if name == "" {
		name = fallback
	}
	switch name {
	case report.SortByIdentities:
		return report.Sort{Field: report.SortByIdentities, Desc: true}
	case report.SortByClicks:
		return report.Sort{Field: report.SortByClicks, Desc: true}
	default:
		return report.Sort{Field: report.SortByDeployment}
	}
}

func runMetrics(ctx context.Context, svc *qualification.Service, li *domain.LineItem, sort report.Sort) ([]report.DeploymentMetrics, error) {
	spec, err := svc.BuildExportSpec(ctx, li)
	if err != nil {
		return nil, err
	}
	rows, err := svc.AggregateClicks(ctx, spec)
	if err != nil {
		return nil, err
	}
	return report.BuildEmailMetrics(report.MetricsInput{
		Results:            rows,
		Sort:               sort,
		DeploymentEntities: spec.DeploymentEntities,
	}), nil
}
