package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/ignite/audience-report/internal/criteria"
	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/service/qualification"
)

func TestOrderRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewOrderRepo(db)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, customer_id").
			WithArgs("ord-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "name", "created_at"}).
				AddRow("ord-1", "cust-1", "Spring Campaign", created))

		o, err := repo.Get(context.Background(), "ord-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if o.CustomerID != "cust-1" {
			t.Errorf("Get() customer = %s, want cust-1", o.CustomerID)
		}
		if !o.CreatedAt.Equal(created) {
			t.Errorf("Get() created = %v, want %v", o.CreatedAt, created)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, customer_id").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "name", "created_at"}))

		_, err := repo.Get(context.Background(), "missing")
		if !errors.Is(err, qualification.ErrOrderNotFound) {
			t.Errorf("Get() error = %v, want ErrOrderNotFound", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestCustomerRepo_ChildIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewCustomerRepo(db)

	mock.ExpectQuery("SELECT id FROM customers").
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("cust-2").
			AddRow("cust-3"))

	ids, err := repo.ChildIDs(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("ChildIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "cust-2" || ids[1] != "cust-3" {
		t.Errorf("ChildIDs() = %v, want [cust-2 cust-3]", ids)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestDeploymentURLRepo_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewDeploymentURLRepo(db)
	window := domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	sent := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "url_id", "link_type",
		"customer_id", "tag_ids",
		"host_customer_id", "host_tag_ids",
		"deployment_entity", "deployment_status", "deployment_sent_date",
	}

	t.Run("full filter", func(t *testing.T) {
		mock.ExpectQuery("FROM deployment_urls").
			WithArgs(
				pq.Array([]string{"cust-1", "cust-2"}),
				pq.Array([]string{"tag-a"}),
				pq.Array([]string{"tag-x"}),
				pq.Array([]string{domain.LinkTypeAdvertising}),
				window.Start, window.End,
			).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(
				"du-1", "url-1", domain.LinkTypeAdvertising,
				"cust-2", "{tag-a}",
				"", "{}",
				"dep-1", "Sent", sent,
			))

		urls, err := repo.Find(context.Background(), qualification.DeploymentURLFilter{
			CustomerIDs:    []string{"cust-1", "cust-2"},
			TagIDs:         []string{"tag-a"},
			ExcludedTagIDs: []string{"tag-x"},
			LinkTypes:      []string{domain.LinkTypeAdvertising},
			Window:         window,
		})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(urls) != 1 {
			t.Fatalf("Find() returned %d urls, want 1", len(urls))
		}
		got := urls[0]
		if got.URLID != "url-1" || got.DeploymentEntity != "dep-1" {
			t.Errorf("Find() = %+v", got)
		}
		if len(got.TagIDs) != 1 || got.TagIDs[0] != "tag-a" {
			t.Errorf("Find() tag ids = %v, want [tag-a]", got.TagIDs)
		}
	})

	t.Run("no tags", func(t *testing.T) {
		mock.ExpectQuery("FROM deployment_urls").
			WithArgs(
				pq.Array([]string{"cust-1"}),
				pq.Array([]string{domain.LinkTypeAdvertising, domain.LinkTypeEditorial}),
				window.Start, window.End,
			).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.Find(context.Background(), qualification.DeploymentURLFilter{
			CustomerIDs: []string{"cust-1"},
			LinkTypes:   []string{domain.LinkTypeAdvertising, domain.LinkTypeEditorial},
			Window:      window,
		})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestClickRepo_DistinctIdentityEntities(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewClickRepo(db)
	window := domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT DISTINCT identity_entity").
		WithArgs(pq.Array([]string{"url-1"}), pq.Array([]string{"dep-1"}), window.Start, window.End).
		WillReturnRows(sqlmock.NewRows([]string{"identity_entity"}).
			AddRow("idt-a").
			AddRow("idt-b"))

	entities, err := repo.DistinctIdentityEntities(context.Background(), qualification.ClickWindow{
		URLIDs:             []string{"url-1"},
		DeploymentEntities: []string{"dep-1"},
		Window:             window,
	})
	if err != nil {
		t.Fatalf("DistinctIdentityEntities() error = %v", err)
	}
	if len(entities) != 2 {
		t.Errorf("DistinctIdentityEntities() = %v, want 2 entities", entities)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestClickRepo_AggregateByIdentity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewClickRepo(db)
	window := domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	spec := &qualification.ExportSpec{
		IdentityEntities:   []string{"idt-a", "idt-b"},
		URLIDs:             []string{"url-1", "url-2"},
		DeploymentEntities: []string{"dep-1"},
		Window:             window,
	}

	mock.ExpectQuery("GROUP BY identity_entity").
		WithArgs(
			pq.Array(spec.IdentityEntities),
			pq.Array(spec.URLIDs),
			pq.Array(spec.DeploymentEntities),
			window.Start, window.End,
		).
		WillReturnRows(sqlmock.NewRows([]string{"identity_entity", "url_ids", "deployment_entities", "clicks"}).
			AddRow("idt-a", "{url-1,url-2}", "{dep-1}", 4).
			AddRow("idt-b", "{url-1}", "{dep-1}", 1))

	rows, err := repo.AggregateByIdentity(context.Background(), spec)
	if err != nil {
		t.Fatalf("AggregateByIdentity() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("AggregateByIdentity() returned %d rows, want 2", len(rows))
	}
	if rows[0].Clicks != 4 || len(rows[0].URLIDs) != 2 {
		t.Errorf("AggregateByIdentity() row = %+v", rows[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestBuildWhere(t *testing.T) {
	t.Run("full criteria", func(t *testing.T) {
		where, args, err := buildWhere(qualification.IdentityCriteria{
			Entities:        []string{"idt-a"},
			CustomerIDs:     []string{"cust-1"},
			LineItemID:      "li-1",
			ExcludedDomains: []string{"blocked.example"},
			Conditions: []criteria.Condition{
				{Field: "jobTitle", Op: criteria.OpNotRegexAny, Patterns: []string{"intern", "^student"}},
				{Field: "company", Op: criteria.OpNotEmpty},
			},
		})
		if err != nil {
			t.Fatalf("buildWhere() error = %v", err)
		}
		// One placeholder per pattern plus the four array args.
		if len(args) != 6 {
			t.Errorf("buildWhere() args = %d, want 6", len(args))
		}
		for _, want := range []string{
			"entity = ANY($1)",
			"inactive = FALSE",
			"NOT (inactive_customer_ids && $2)",
			"NOT (inactive_line_item_ids && $3)",
			"email_domain <> ALL($4)",
			"COALESCE(attributes->>'jobTitle','') !~* $5",
			"COALESCE(attributes->>'jobTitle','') !~* $6",
			"COALESCE(attributes->>'company','') <> ''",
		} {
			if !strings.Contains(where, want) {
				t.Errorf("buildWhere() missing clause %q in:\n%s", want, where)
			}
		}
	})

	t.Run("no excluded domains", func(t *testing.T) {
		where, args, err := buildWhere(qualification.IdentityCriteria{
			Entities:    []string{"idt-a"},
			CustomerIDs: []string{"cust-1"},
			LineItemID:  "li-1",
		})
		if err != nil {
			t.Fatalf("buildWhere() error = %v", err)
		}
		if len(args) != 3 {
			t.Errorf("buildWhere() args = %d, want 3", len(args))
		}
		if strings.Contains(where, "email_domain") {
			t.Errorf("buildWhere() unexpected domain clause in:\n%s", where)
		}
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := buildWhere(qualification.IdentityCriteria{
			Entities:   []string{"idt-a"},
			Conditions: []criteria.Condition{{Field: "x", Op: criteria.Op("bogus")}},
		})
		if err == nil {
			t.Error("buildWhere() expected error for unknown operator")
		}
	})
}

func TestIdentityRepo_CountMatching(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewIdentityRepo(db)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(
			pq.Array([]string{"idt-a", "idt-b"}),
			pq.Array([]string{"cust-1"}),
			pq.Array([]string{"li-1"}),
		).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountMatching(context.Background(), qualification.IdentityCriteria{
		Entities:    []string{"idt-a", "idt-b"},
		CustomerIDs: []string{"cust-1"},
		LineItemID:  "li-1",
	})
	if err != nil {
		t.Fatalf("CountMatching() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountMatching() = %d, want 2", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestIdentityRepo_FindEntities(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewIdentityRepo(db)
	crit := qualification.IdentityCriteria{
		Entities:    []string{"idt-a", "idt-b", "idt-c"},
		CustomerIDs: []string{"cust-1"},
		LineItemID:  "li-1",
	}

	t.Run("with limit", func(t *testing.T) {
		mock.ExpectQuery("LIMIT 2").
			WithArgs(pq.Array(crit.Entities), pq.Array(crit.CustomerIDs), pq.Array([]string{"li-1"})).
			WillReturnRows(sqlmock.NewRows([]string{"entity"}).
				AddRow("idt-a").
				AddRow("idt-b"))

		entities, err := repo.FindEntities(context.Background(), crit, 2)
		if err != nil {
			t.Fatalf("FindEntities() error = %v", err)
		}
		if len(entities) != 2 {
			t.Errorf("FindEntities() = %v, want 2 entities", entities)
		}
	})

	t.Run("no cap", func(t *testing.T) {
		mock.ExpectQuery("SELECT entity FROM identities").
			WithArgs(pq.Array(crit.Entities), pq.Array(crit.CustomerIDs), pq.Array([]string{"li-1"})).
			WillReturnRows(sqlmock.NewRows([]string{"entity"}).
				AddRow("idt-a").
				AddRow("idt-b").
				AddRow("idt-c"))

		entities, err := repo.FindEntities(context.Background(), crit, 0)
		if err != nil {
			t.Fatalf("FindEntities() error = %v", err)
		}
		if len(entities) != 3 {
			t.Errorf("FindEntities() = %v, want 3 entities", entities)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestIdentityRepo_Activation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewIdentityRepo(db)

	t.Run("deactivate global", func(t *testing.T) {
		mock.ExpectExec("UPDATE identities SET inactive").
			WithArgs("idt-1", true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.SetActivation(context.Background(), "idt-1", false); err != nil {
			t.Errorf("SetActivation() error = %v", err)
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		mock.ExpectExec("UPDATE identities SET inactive").
			WithArgs("missing", false).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetActivation(context.Background(), "missing", true)
		if !errors.Is(err, qualification.ErrIdentityNotFound) {
			t.Errorf("SetActivation() error = %v, want ErrIdentityNotFound", err)
		}
	})

	t.Run("reactivate for customer", func(t *testing.T) {
		mock.ExpectExec("array_remove").
			WithArgs("idt-1", "cust-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.SetCustomerActivation(context.Background(), "idt-1", "cust-1", true); err != nil {
			t.Errorf("SetCustomerActivation() error = %v", err)
		}
	})

	t.Run("deactivate for line item", func(t *testing.T) {
		mock.ExpectExec("array_append").
			WithArgs("idt-1", "li-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.SetLineItemActivation(context.Background(), "idt-1", "li-1", false); err != nil {
			t.Errorf("SetLineItemActivation() error = %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestExcludedDomainRepo_DistinctDomains(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewExcludedDomainRepo(db)

	mock.ExpectQuery("SELECT DISTINCT domain FROM excluded_email_domains").
		WillReturnRows(sqlmock.NewRows([]string{"domain"}).
			AddRow("blocked.example").
			AddRow("spamtrap.example"))

	domains, err := repo.DistinctDomains(context.Background())
	if err != nil {
		t.Fatalf("DistinctDomains() error = %v", err)
	}
	if len(domains) != 2 {
		t.Errorf("DistinctDomains() = %v, want 2 domains", domains)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}
