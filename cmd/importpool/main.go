package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/config"
	"github.com/deckrealms/lanebattle/internal/repository"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	batchSize  = flag.Int("batch", 500, "cards stored per batch")
)

// Columns: owner,faction,rank,council,tier[,id]. The header row is required.
const minColumns = 5

func main() {
	flag.Parse()
	ctx := context.Background()

	csvPath := "data/card_pool.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Card Pool Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	pools, skipped, err := parseRecords(file)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	for _, msg := range skipped {
		log.Printf("Warning: %s", msg)
	}

	total := 0
	for _, cards := range pools {
		total += len(cards)
	}
	fmt.Printf("Parsed %d cards for %d owners\n", total, len(pools))
	if total == 0 {
		log.Fatal("CSV file has no valid card rows")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	fmt.Println("Connecting to database...")
	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	fmt.Println("✓ Database connection established")

	repo := repository.NewCardPoolRepository(db)
	imported, failed := 0, 0
	startTime := time.Now()

	owners := make([]string, 0, len(pools))
	for owner := range pools {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		cards := pools[owner]
		for i := 0; i < len(cards); i += *batchSize {
			end := min(i+*batchSize, len(cards))
			stored, err := repo.Upsert(ctx, owner, cards[i:end])
			imported += stored
			if err != nil {
				log.Printf("Failed to store cards for %s: %v", owner, err)
			} else if stored < end-i {
				log.Printf("Warning: %d card ids for %s belong to another owner", end-i-stored, owner)
			}
			failed += end - i - stored
		}
		fmt.Printf("Progress: %s done (%d/%d cards imported)\n", owner, imported, total)
	}

	duration := time.Since(startTime)
	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("✓ Successfully imported: %d cards\n", imported)
	if failed > 0 {
		fmt.Printf("✗ Failed to import: %d cards\n", failed)
	}
	fmt.Printf("Time taken: %s\n", duration)
}

// parseRecords groups the valid rows by owner. Invalid rows are reported and
// skipped; only a malformed CSV stream is an error.
func parseRecords(r io.Reader) (map[string][]battle.Card, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	pools := make(map[string][]battle.Card)
	var skipped []string
	if len(records) < 2 {
		return pools, skipped, nil
	}

	for i, record := range records[1:] { // Skip header
		row := i + 2
		if len(record) < minColumns {
			skipped = append(skipped, fmt.Sprintf("skipping row %d: insufficient columns", row))
			continue
		}
		owner := strings.TrimSpace(record[0])
		if owner == "" {
			skipped = append(skipped, fmt.Sprintf("skipping row %d: missing owner", row))
			continue
		}
		tier, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil || tier < 0 || tier > battle.MaxPromotionTier {
			skipped = append(skipped, fmt.Sprintf("skipping row %d: tier %q outside 0..%d", row, record[4], battle.MaxPromotionTier))
			continue
		}
		rec := repository.CardRecord{
			Owner:   owner,
			Faction: record[1],
			Rank:    strings.TrimSpace(record[2]),
			Council: record[3],
			Tier:    tier,
		}
		if len(record) > minColumns && strings.TrimSpace(record[5]) != "" {
			id, err := uuid.Parse(strings.TrimSpace(record[5]))
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("skipping row %d: invalid card id %q", row, record[5]))
				continue
			}
			rec.ID = id.String()
		}
		card, err := rec.ToCard()
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("skipping row %d: %v", row, err))
			continue
		}
		pools[owner] = append(pools[owner], card)
	}
	return pools, skipped, nil
}
