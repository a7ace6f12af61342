package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/config"
	"github.com/deckrealms/lanebattle/internal/wager"
)

var (
	configPath     = flag.String("config", "", "optional configuration file")
	battles        = flag.Int("n", 10, "number of battles to simulate")
	baseSeed       = flag.Uint64("seed", 1, "seed of the first battle; later battles add one")
	playerStrategy = flag.String("player", "greedy", "player strategy: random, greedy or sequence")
	enemyStrategy  = flag.String("enemy", "", "enemy strategy; defaults to battle.enemy_strategy")
	details        = flag.Bool("details", false, "print a stat panel for every battle")
	wagers         = flag.Int("wagers", 0, "number of betting tables to simulate after the battles")
	raise          = flag.Int64("raise", 5000, "raise placed at every betting table")
	verbose        = flag.Bool("v", false, "log engine events")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		pterm.Error.Printfln("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			pterm.Error.Printfln("Failed to initialize logger: %v", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	enemy := *enemyStrategy
	if enemy == "" {
		enemy = cfg.Battle.EnemyStrategy
	}

	pterm.DefaultHeader.WithFullWidth().Println("Lane Battle Simulator")
	pterm.Info.Printfln("%d battles, player %s vs enemy %s, seeds %d..%d",
		*battles, *playerStrategy, enemy, *baseSeed, *baseSeed+uint64(max(*battles, 1))-1)

	spinner, _ := pterm.DefaultSpinner.Start("Simulating battles ...")
	summaries := make([]battleSummary, 0, *battles)
	for i := 0; i < *battles; i++ {
		sum, err := simulateBattle(battleSetup{
			Rules:          cfg.Battle.Rules(),
			Seed:           *baseSeed + uint64(i),
			PlayerStrategy: *playerStrategy,
			EnemyStrategy:  enemy,
			Logger:         logger,
		})
		if err != nil {
			spinner.Fail(fmt.Sprintf("Battle with seed %d failed: %v", *baseSeed+uint64(i), err))
			os.Exit(1)
		}
		summaries = append(summaries, sum)
	}
	spinner.Success(fmt.Sprintf("Simulated %d battles", len(summaries)))

	printBattleTable(summaries)
	if *details {
		for _, s := range summaries {
			printBattlePanel(s)
		}
	}
	printTotals(summaries)

	if *wagers > 0 {
		runWagers(cfg.Wager.Params(), logger)
	}
}

func printBattleTable(summaries []battleSummary) {
	data := pterm.TableData{{"Seed", "Player", "Enemy", "First", "Winner", "Reason", "Rounds", "HP", "Power"}}
	for _, s := range summaries {
		data = append(data, []string{
			strconv.FormatUint(s.Seed, 10),
			s.PlayerFaction,
			s.EnemyFaction,
			s.FirstTurn,
			colorWinner(s.Winner),
			s.Reason,
			strconv.Itoa(s.Rounds),
			fmt.Sprintf("%d / %d", s.PlayerHP, s.EnemyHP),
			fmt.Sprintf("%d / %d", s.PlayerPower, s.EnemyPower),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func printBattlePanel(s battleSummary) {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2).WithTopPadding(1).WithBottomPadding(1)
	player := pbox.WithTitle(pterm.LightCyan("|PLAYER " + s.PlayerFaction + "|")).WithTitleTopCenter().Sprint(statLines(s.PlayerStats))
	enemy := pbox.WithTitle(pterm.LightRed("|ENEMY " + s.EnemyFaction + "|")).WithTitleTopCenter().Sprint(statLines(s.EnemyStats))

	pterm.DefaultSection.Printfln("Seed %d: %s (%s)", s.Seed, colorWinner(s.Winner), s.Reason)
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: player}, {Data: enemy}},
	}).Render()
	pterm.Printfln("checksum %s", pterm.Gray(s.Checksum))
}

func statLines(v battle.StatsView) string {
	best := v.BestHand
	if best == "" {
		best = "-"
	}
	return pterm.Sprintfln("Hands formed:    %d", v.TotalHandsFormed) +
		pterm.Sprintfln("Best hand:       %s", best) +
		pterm.Sprintfln("Damage dealt:    %d", v.DamageDealt) +
		pterm.Sprintfln("Damage taken:    %d", v.DamageTaken) +
		pterm.Sprintfln("Cards destroyed: %d", v.CardsDestroyed) +
		pterm.Sprintf("Cards lost:      %d", v.CardsLost)
}

func printTotals(summaries []battleSummary) {
	wins := map[string]int{}
	byPower := 0
	for _, s := range summaries {
		wins[s.Winner]++
		if s.ByPower {
			byPower++
		}
	}
	bars := []pterm.Bar{
		{Label: "player", Value: wins["player"], Style: pterm.NewStyle(pterm.FgLightCyan)},
		{Label: "enemy", Value: wins["enemy"], Style: pterm.NewStyle(pterm.FgLightRed)},
		{Label: "draw", Value: wins["draw"], Style: pterm.NewStyle(pterm.FgGray)},
	}
	pterm.DefaultSection.Println("Totals")
	pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithBars(bars).Render()
	pterm.Info.Printfln("%d of %d battles went the distance and were decided by realm power", byPower, len(summaries))
}

func runWagers(params wager.Params, logger *zap.Logger) {
	purse := wager.NewPurse(100000)
	data := pterm.TableData{{"Seed", "Faction", "Enemy", "Reply", "Winner", "Hands", "Pot", "XP", "Bankroll"}}
	for i := 0; i < *wagers; i++ {
		seed := *baseSeed + uint64(i)
		if purse.Balance() < params.MinAnte+*raise {
			pterm.Warning.Printfln("Bankroll exhausted after %d tables", i)
			break
		}
		s, err := simulateWager(params, seed, *raise, purse, logger)
		if err != nil {
			pterm.Error.Printfln("Table with seed %d failed: %v", seed, err)
			break
		}
		data = append(data, []string{
			strconv.FormatUint(s.Seed, 10),
			s.Faction,
			s.Enemy,
			s.Reply,
			colorWinner(s.Winner),
			fmt.Sprintf("%d-%d", s.PlayerWins, s.EnemyWins),
			strconv.FormatInt(s.Pot, 10),
			strconv.FormatInt(s.XP, 10),
			strconv.FormatInt(s.Bankroll, 10),
		})
	}
	pterm.DefaultSection.Println("Betting tables")
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func colorWinner(winner string) string {
	switch winner {
	case "player":
		return pterm.LightGreen(winner)
	case "enemy":
		return pterm.LightRed(winner)
	default:
		return pterm.Gray(winner)
	}
}
