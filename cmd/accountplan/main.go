package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cramdesk/internal/billing"
	"cramdesk/internal/domain"
	"cramdesk/internal/infra"
	"cramdesk/internal/sqlinline"
)

func main() {
	var (
		idFlag          string
		emailFlag       string
		planFlag        string
		pagesFlag       int
		extendTrialFlag int
	)

	flag.StringVar(&idFlag, "id", "", "account ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "account email to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (trial, student, scholar)")
	flag.IntVar(&pagesFlag, "pages", -1, "page balance to set (defaults to the plan's monthly allotment)")
	flag.IntVar(&extendTrialFlag, "extend-trial", 0, "extend the trial deadline by this many days")
	flag.Parse()

	accountID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	plan := domain.PlanTier(strings.TrimSpace(strings.ToLower(planFlag)))

	if accountID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if plan == "" && extendTrialFlag <= 0 {
		exitWithError(errors.New("nothing to do: provide -plan or -extend-trial"))
	}
	if plan != "" {
		switch plan {
		case domain.PlanTierTrial, domain.PlanTierStudent, domain.PlanTierScholar:
		default:
			exitWithError(fmt.Errorf("unsupported plan %q", plan))
		}
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "accountplan").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
	var account struct {
		ID             string
		Email          string
		Plan           string
		Status         string
		TrialEndsAt    *time.Time
		PagesRemaining int
	}
	var (
		googleSub, name, locale, stripeCustomer string
		anchor, createdAt, updatedAt            time.Time
		scanErr                                 error
	)
	if accountID != "" {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectAccountByID, accountID)
		scanErr = row.Scan(&account.ID, &googleSub, &account.Email, &name, &locale,
			&account.Plan, &account.Status, &account.TrialEndsAt, &account.PagesRemaining,
			&anchor, &stripeCustomer, &createdAt, &updatedAt)
	} else {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectAccountByEmail, email)
		scanErr = row.Scan(&account.ID, &googleSub, &account.Email, &name, &locale,
			&account.Plan, &account.Status, &account.TrialEndsAt, &account.PagesRemaining,
			&anchor, &stripeCustomer, &createdAt, &updatedAt)
	}
	cancelLookup()
	if scanErr != nil {
		exitWithError(fmt.Errorf("failed to load account: %w", scanErr))
	}

	if plan != "" {
		pages := pagesFlag
		if pages < 0 {
			pages = billing.TierFor(plan).MonthlyPages
		}
		status := domain.SubscriptionActive
		if plan == domain.PlanTierTrial {
			status = domain.SubscriptionTrialing
		}
		updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := runner.Exec(updateCtx, sqlinline.QResetBillingCycle,
			account.ID, string(plan), string(status), pages)
		cancelUpdate()
		if err != nil {
			exitWithError(fmt.Errorf("failed to update plan: %w", err))
		}
		fmt.Printf("Account %s (%s) set to plan %s with %d pages\n", account.ID, account.Email, plan, pages)
	}

	if extendTrialFlag > 0 {
		extendCtx, cancelExtend := context.WithTimeout(context.Background(), 5*time.Second)
		row := runner.QueryRow(extendCtx, sqlinline.QExtendTrial, account.ID, extendTrialFlag)
		var trialEndsAt time.Time
		err := row.Scan(&trialEndsAt)
		cancelExtend()
		if err != nil {
			exitWithError(fmt.Errorf("failed to extend trial: %w", err))
		}
		fmt.Printf("Trial for account %s extended until %s\n", account.ID, trialEndsAt.UTC().Format(time.RFC3339))
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
