package battle

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogEntry is one line of the battle log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// Options configures a new battle.
type Options struct {
	// ID identifies the battle; a uuid is generated when empty.
	ID    string
	Rules Rules

	PlayerFaction Faction
	// PlayerCards is the player's owned pool. When empty the player gets a
	// synthetic full deck of PlayerFaction.
	PlayerCards []Card
	// EnemyFaction is chosen at random when nil.
	EnemyFaction *Faction

	// EnemyStrategy drives automatic enemy placement. When nil the enemy must
	// be placed through PlaceCard like the player.
	EnemyStrategy PlacementStrategy

	// FirstTurn skips the coin toss when set.
	FirstTurn Side
	// CoinCall is the player's call for the coin toss.
	CoinCall Coin
	// WinnerChoice is who goes first when the player wins the toss.
	WinnerChoice Side

	// Seed makes decks, coin toss and enemy faction reproducible when Rand is nil.
	Seed uint64
	Rand *rand.Rand

	Logger *zap.Logger
	Clock  func() time.Time
}

type sideState struct {
	faction Faction
	deck    *Deck
	hand    []Card
	rows    Rows
	played  []string
}

// Verdict is the final result of a battle.
type Verdict struct {
	Outcome     Outcome
	Reason      string
	ByPower     bool
	PlayerPower int
	EnemyPower  int
}

// RoundInfo reports what NextRound did.
type RoundInfo struct {
	Round   int
	Hand    int
	NewHand bool
	Quota   int
	// PlayerDealt and EnemyDealt may be below Quota when a deck runs short.
	PlayerDealt []Card
	EnemyDealt  []Card
	Exhausted   bool
	Phase       Phase
	Verdict     *Verdict
}

// PlacementResult reports where a card landed.
type PlacementResult struct {
	Side Side
	Card Card
	Lane Lane
	Slot int
}

// RoundReport is the outcome of ResolveCombat.
type RoundReport struct {
	Round    int
	Combat   CombatResult
	PlayerHP int
	EnemyHP  int
	Phase    Phase
	Verdict  *Verdict
}

// Battle is the scheduler. It exclusively owns the battle state; every
// mutation goes through its methods, which are synchronous and leave the
// state consistent before returning. A Battle is not safe for concurrent use.
type Battle struct {
	id       string
	opts     Options
	rules    Rules
	logger   *zap.Logger
	rng      *rand.Rand
	strategy PlacementStrategy
	events   *EventBus
	clock    func() time.Time

	phase     Phase
	round     int
	hand      int
	playerHP  int
	enemyHP   int
	toss      CoinToss
	firstTurn Side
	player    sideState
	enemy     sideState
	stats     *StatsTracker
	log       []LogEntry
	last      *CombatResult
	verdict   *Verdict
	createdAt time.Time
}

// New creates a battle in the setup phase.
func New(opts Options) (*Battle, error) {
	if opts.Rules.TotalRounds == 0 && len(opts.Rules.CardsPerRound) == 0 {
		opts.Rules = DefaultRules()
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if !opts.PlayerFaction.Valid() {
		return nil, fmt.Errorf("invalid player faction %d", int(opts.PlayerFaction))
	}
	if opts.EnemyFaction != nil && !opts.EnemyFaction.Valid() {
		return nil, fmt.Errorf("invalid enemy faction %d", int(*opts.EnemyFaction))
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	b := &Battle{
		id:       opts.ID,
		opts:     opts,
		rules:    opts.Rules,
		logger:   opts.Logger,
		rng:      rng,
		strategy: opts.EnemyStrategy,
		events:   NewEventBus(),
		clock:    clock,
	}
	b.resetState()
	return b, nil
}

func (b *Battle) resetState() {
	b.phase = PhaseSetup
	b.round = 0
	b.hand = 0
	b.playerHP = b.rules.StartingHP
	b.enemyHP = b.rules.StartingHP
	b.toss = CoinToss{}
	b.firstTurn = SideNone
	b.player = sideState{faction: b.opts.PlayerFaction}
	b.enemy = sideState{}
	b.stats = NewStatsTracker()
	b.log = make([]LogEntry, 0, 64)
	b.last = nil
	b.verdict = nil
	b.createdAt = b.clock()
}

// ID returns the battle identifier.
func (b *Battle) ID() string {
	return b.id
}

// Phase returns the current phase.
func (b *Battle) Phase() Phase {
	return b.phase
}

// Round returns the current 1-based round, 0 before the first round.
func (b *Battle) Round() int {
	return b.round
}

// HP returns side's hit points.
func (b *Battle) HP(side Side) int {
	if side == SideEnemy {
		return b.enemyHP
	}
	return b.playerHP
}

// Events returns the battle's event bus.
func (b *Battle) Events() *EventBus {
	return b.events
}

// Stats returns a copy of side's statistics.
func (b *Battle) Stats(side Side) Stats {
	return b.stats.For(side)
}

// Log returns a copy of the battle log.
func (b *Battle) Log() []LogEntry {
	return append([]LogEntry(nil), b.log...)
}

// Hand returns a copy of side's holding area.
func (b *Battle) Hand(side Side) []Card {
	s, err := b.side(side)
	if err != nil {
		return nil
	}
	return append([]Card(nil), s.hand...)
}

// Row returns a copy of side's row in lane.
func (b *Battle) Row(side Side, lane Lane) []Card {
	s, err := b.side(side)
	if err != nil || !lane.Valid() {
		return nil
	}
	return s.rows.Get(lane).Cards()
}

// PlayedCardIDs returns the ids of every card side placed, in placement order.
func (b *Battle) PlayedCardIDs(side Side) []string {
	s, err := b.side(side)
	if err != nil {
		return nil
	}
	return append([]string(nil), s.played...)
}

// Verdict returns the final verdict once the battle has ended.
func (b *Battle) Verdict() (Verdict, bool) {
	if b.verdict == nil {
		return Verdict{}, false
	}
	return *b.verdict, true
}

// Setup generates both decks, initializes counters and decides the first turn.
func (b *Battle) Setup() error {
	if b.phase != PhaseSetup {
		return fmt.Errorf("%w: setup in phase %s", ErrNotReady, b.phase)
	}

	if len(b.opts.PlayerCards) > 0 {
		b.player.deck = NewDeck(b.opts.PlayerCards)
		b.player.deck.Shuffle(b.rng)
	} else {
		b.player.deck = GenerateFullDeck(b.player.faction, b.rng)
	}

	if b.opts.EnemyFaction != nil {
		b.enemy.faction = *b.opts.EnemyFaction
	} else {
		b.enemy.faction = Factions[b.rng.IntN(len(Factions))]
	}
	b.enemy.deck = GenerateFullDeck(b.enemy.faction, b.rng)

	if b.opts.FirstTurn == SidePlayer || b.opts.FirstTurn == SideEnemy {
		b.firstTurn = b.opts.FirstTurn
	} else {
		b.toss = DecideFirstTurn(b.rng, b.opts.CoinCall, b.opts.WinnerChoice)
		b.firstTurn = b.toss.FirstTurn
		b.addLog(fmt.Sprintf("Coin landed on %s, %s goes first", b.toss.Result, b.firstTurn))
	}

	b.addLog(fmt.Sprintf("Battle set up: %s (%d cards) vs %s (%d cards)",
		b.player.faction, b.player.deck.Len(), b.enemy.faction, b.enemy.deck.Len()))
	b.phase = PhaseDrawing

	if b.logger != nil {
		b.logger.Info("battle set up",
			zap.String("battle_id", b.id),
			zap.String("player_faction", b.player.faction.String()),
			zap.String("enemy_faction", b.enemy.faction.String()),
			zap.Int("player_deck", b.player.deck.Len()),
			zap.String("first_turn", b.firstTurn.String()),
		)
	}
	b.publish(Event{Type: EventBattleStarted, Side: b.firstTurn})
	return nil
}

// NextRound advances to the next round and deals its quota. Past the last
// round the battle ends and the verdict is attached to the result.
func (b *Battle) NextRound() (RoundInfo, error) {
	if b.phase != PhaseDrawing && b.phase != PhaseResolved {
		return RoundInfo{}, fmt.Errorf("%w: next round in phase %s", ErrNotReady, b.phase)
	}

	b.round++
	b.phase = PhaseDrawing
	if b.round > b.rules.TotalRounds {
		v := b.end()
		return RoundInfo{Round: b.round, Hand: b.hand, Phase: b.phase, Verdict: &v}, nil
	}

	info := RoundInfo{Round: b.round}
	if (b.round-1)%b.rules.RoundsPerHand == 0 {
		b.hand = (b.round-1)/b.rules.RoundsPerHand + 1
		b.addLog(fmt.Sprintf("--- Starting Hand %d ---", b.hand))
		if b.hand > 1 {
			b.ClearBoard()
			info.NewHand = true
		}
		b.publish(Event{Type: EventHandStarted})
	}
	info.Hand = b.hand
	b.addLog(fmt.Sprintf("--- Round %d ---", b.round))
	b.publish(Event{Type: EventRoundStarted})

	info.Quota = b.rules.QuotaFor(b.round)
	info.PlayerDealt = b.player.deck.Draw(info.Quota)
	info.EnemyDealt = b.enemy.deck.Draw(info.Quota)
	info.Exhausted = len(info.PlayerDealt) < info.Quota || len(info.EnemyDealt) < info.Quota
	b.player.hand = append(b.player.hand, info.PlayerDealt...)
	b.enemy.hand = append(b.enemy.hand, info.EnemyDealt...)

	b.addLog(fmt.Sprintf("Round %d: Dealt %d cards to each player (Player deck: %d remaining)",
		b.round, info.Quota, b.player.deck.Len()))
	if info.Exhausted {
		b.addLog(fmt.Sprintf("Deck exhausted: player drew %d, enemy drew %d of %d",
			len(info.PlayerDealt), len(info.EnemyDealt), info.Quota))
		if b.logger != nil {
			b.logger.Debug("deck exhausted",
				zap.String("battle_id", b.id),
				zap.Int("round", b.round),
				zap.Int("player_dealt", len(info.PlayerDealt)),
				zap.Int("enemy_dealt", len(info.EnemyDealt)),
			)
		}
	}
	b.publish(Event{Type: EventCardsDealt})

	b.phase = PhasePlacing
	b.advancePlacing()
	info.Phase = b.phase

	if b.logger != nil {
		b.logger.Debug("round started",
			zap.String("battle_id", b.id),
			zap.Int("round", b.round),
			zap.Int("hand", b.hand),
			zap.Int("quota", info.Quota),
			zap.Bool("new_hand", info.NewHand),
		)
	}
	return info, nil
}

// PlaceCard moves the card at handIndex of side's holding area into lane, at
// slot or, with AutoSlot, the lowest free slot.
func (b *Battle) PlaceCard(side Side, handIndex int, lane Lane, slot int) (PlacementResult, error) {
	res, err := b.placeCard(side, handIndex, lane, slot)
	if err != nil {
		return PlacementResult{}, err
	}
	b.advancePlacing()
	return res, nil
}

func (b *Battle) placeCard(side Side, handIndex int, lane Lane, slot int) (PlacementResult, error) {
	s, err := b.side(side)
	if err != nil {
		return PlacementResult{}, err
	}
	if b.phase != PhasePlacing {
		return PlacementResult{}, fmt.Errorf("%w: place card in phase %s", ErrNotReady, b.phase)
	}
	if handIndex < 0 || handIndex >= len(s.hand) {
		return PlacementResult{}, fmt.Errorf("%w: hand index %d outside [0,%d)", ErrInvalidIndex, handIndex, len(s.hand))
	}
	if !lane.Valid() {
		return PlacementResult{}, fmt.Errorf("%w: %d", ErrInvalidLane, int(lane))
	}
	row := s.rows.Get(lane)
	if row.Full() {
		return PlacementResult{}, fmt.Errorf("%w: %s %s row", ErrLaneFull, side, lane)
	}
	if slot != AutoSlot {
		if slot < 0 || slot >= RowCapacity {
			return PlacementResult{}, fmt.Errorf("%w: slot %d outside [0,%d)", ErrInvalidIndex, slot, RowCapacity)
		}
		if row.Occupied(slot) {
			return PlacementResult{}, fmt.Errorf("%w: %s %s slot %d", ErrSlotOccupied, side, lane, slot)
		}
	} else {
		slot = row.FirstFree()
	}

	card := s.hand[handIndex]
	s.hand = append(s.hand[:handIndex], s.hand[handIndex+1:]...)
	row.put(slot, card)
	s.played = append(s.played, card.ID)

	b.addLog(fmt.Sprintf("%s placed %s in %s row", side.Title(), card.Rank, lane))
	b.publish(Event{Type: EventCardPlaced, Side: side, Lane: lane, Slot: slot, Card: &card})
	return PlacementResult{Side: side, Card: card, Lane: lane, Slot: slot}, nil
}

// AutoPlace lets the enemy strategy place side's cards until it declines or
// the side cannot place any more. It returns the placements made.
func (b *Battle) AutoPlace(side Side) ([]PlacementResult, error) {
	if _, err := b.side(side); err != nil {
		return nil, err
	}
	if b.phase != PhasePlacing {
		return nil, fmt.Errorf("%w: auto place in phase %s", ErrNotReady, b.phase)
	}
	if b.strategy == nil {
		return nil, nil
	}
	placed := b.autoPlace(side, b.strategy)
	b.advancePlacing()
	return placed, nil
}

// AutoPlaceWith places side's cards with strategy, for placement drivers that
// bring their own strategy.
func (b *Battle) AutoPlaceWith(side Side, strategy PlacementStrategy) ([]PlacementResult, error) {
	if _, err := b.side(side); err != nil {
		return nil, err
	}
	if b.phase != PhasePlacing {
		return nil, fmt.Errorf("%w: auto place in phase %s", ErrNotReady, b.phase)
	}
	if strategy == nil {
		return nil, nil
	}
	placed := b.autoPlace(side, strategy)
	b.advancePlacing()
	return placed, nil
}

func (b *Battle) autoPlace(side Side, strategy PlacementStrategy) []PlacementResult {
	var placed []PlacementResult
	for b.canPlace(side) {
		p, ok := strategy.ProposePlacement(b.placementView(side))
		if !ok {
			break
		}
		res, err := b.placeCard(side, p.HandIndex, p.Lane, p.Slot)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("strategy proposed an invalid placement",
					zap.String("battle_id", b.id),
					zap.String("side", side.String()),
					zap.Error(err),
				)
			}
			break
		}
		placed = append(placed, res)
	}
	return placed
}

// advancePlacing runs the enemy strategy when it is the enemy's turn and moves
// to battling once neither side can place.
func (b *Battle) advancePlacing() {
	if b.phase != PhasePlacing {
		return
	}
	enemyTurn := b.firstTurn == SideEnemy || !b.canPlace(SidePlayer)
	if enemyTurn && b.strategy != nil && b.canPlace(SideEnemy) {
		b.autoPlace(SideEnemy, b.strategy)
	}
	if b.canPlace(SidePlayer) || b.canPlace(SideEnemy) {
		return
	}
	b.phase = PhaseBattling
	b.publish(Event{Type: EventPlacingDone})
}

// CanPlace reports whether side still has a card and a lane to put it in.
func (b *Battle) CanPlace(side Side) bool {
	return b.phase == PhasePlacing && b.canPlace(side)
}

func (b *Battle) canPlace(side Side) bool {
	s, err := b.side(side)
	if err != nil {
		return false
	}
	return len(s.hand) > 0 && s.rows.HasCapacity()
}

func (b *Battle) placementView(side Side) PlacementView {
	s, _ := b.side(side)
	o, _ := b.side(side.Opponent())
	return PlacementView{
		Side:     side,
		Round:    b.round,
		Hand:     append([]Card(nil), s.hand...),
		Own:      s.rows,
		Opponent: o.rows,
	}
}

// ResolveCombat evaluates every lane, resolves the three pairings and applies
// HP loss and destruction in one step.
func (b *Battle) ResolveCombat() (RoundReport, error) {
	if b.phase != PhaseBattling {
		return RoundReport{}, fmt.Errorf("%w: resolve combat in phase %s", ErrNotReady, b.phase)
	}

	result := ResolveCombat(&b.player.rows, &b.enemy.rows, b.rules.Combat)

	b.playerHP -= result.NetPlayerDamage
	b.enemyHP -= result.NetEnemyDamage
	for _, lr := range result.Lanes {
		if len(lr.DestructionTargets) == 0 {
			continue
		}
		loser, _ := b.side(lr.Loser())
		row := loser.rows.Get(lr.Lane)
		row.Reset(ApplyDestruction(row.Cards(), lr.DestructionTargets))
	}
	b.stats.Record(result)
	b.last = &result

	b.addLog(fmt.Sprintf("Combat resolved: Player took %d damage, Enemy took %d damage",
		result.NetPlayerDamage, result.NetEnemyDamage))
	b.addLog(fmt.Sprintf("Player HP: %d, Enemy HP: %d", b.playerHP, b.enemyHP))
	b.publish(Event{Type: EventCombatResolved, Combat: &result})

	if b.logger != nil {
		b.logger.Info("combat resolved",
			zap.String("battle_id", b.id),
			zap.Int("round", b.round),
			zap.Int("player_damage", result.NetPlayerDamage),
			zap.Int("enemy_damage", result.NetEnemyDamage),
			zap.Int("player_hp", b.playerHP),
			zap.Int("enemy_hp", b.enemyHP),
		)
	}

	report := RoundReport{Round: b.round, Combat: result}
	if b.playerHP <= 0 || b.enemyHP <= 0 {
		v := b.end()
		report.Verdict = &v
	} else {
		b.phase = PhaseResolved
	}
	report.PlayerHP, report.EnemyHP, report.Phase = b.playerHP, b.enemyHP, b.phase
	return report, nil
}

// ClearBoard empties every row of both sides.
func (b *Battle) ClearBoard() {
	b.player.rows.Clear()
	b.enemy.rows.Clear()
	b.addLog("Board cleared for new hand")
	b.publish(Event{Type: EventBoardCleared})
}

// Reset abandons the battle and returns it to the setup phase.
func (b *Battle) Reset() {
	b.resetState()
	if b.logger != nil {
		b.logger.Info("battle reset", zap.String("battle_id", b.id))
	}
	b.publish(Event{Type: EventBattleReset})
}

func (b *Battle) end() Verdict {
	v := b.determineVerdict()
	b.verdict = &v
	b.phase = PhaseEnded
	b.addLog(fmt.Sprintf("Battle ended: %s (%s)", v.Outcome, v.Reason))
	b.publish(Event{Type: EventBattleEnded, Outcome: v.Outcome})

	if b.logger != nil {
		b.logger.Info("battle ended",
			zap.String("battle_id", b.id),
			zap.String("outcome", v.Outcome.String()),
			zap.String("reason", v.Reason),
			zap.Int("round", b.round),
			zap.Int("player_hp", b.playerHP),
			zap.Int("enemy_hp", b.enemyHP),
		)
	}
	return v
}

func (b *Battle) determineVerdict() Verdict {
	switch {
	case b.playerHP <= 0 && b.enemyHP <= 0:
		return Verdict{Outcome: OutcomeDraw, Reason: "Both players defeated"}
	case b.playerHP <= 0:
		return Verdict{Outcome: OutcomeEnemy, Reason: "Player HP reduced to 0"}
	case b.enemyHP <= 0:
		return Verdict{Outcome: OutcomePlayer, Reason: "Enemy HP reduced to 0"}
	}

	v := Verdict{
		ByPower:     true,
		PlayerPower: TotalPower(&b.player.rows),
		EnemyPower:  TotalPower(&b.enemy.rows),
	}
	switch {
	case v.PlayerPower > v.EnemyPower:
		v.Outcome, v.Reason = OutcomePlayer, "Higher realm power"
	case v.EnemyPower > v.PlayerPower:
		v.Outcome, v.Reason = OutcomeEnemy, "Higher realm power"
	default:
		v.Outcome, v.Reason = OutcomeDraw, "Equal realm power"
	}
	return v
}

// TotalPower sums CalculateRowScore over a side's three rows.
func TotalPower(rows *Rows) int {
	total := 0
	for _, lane := range Lanes {
		total += CalculateRowScore(rows.Get(lane).Cards())
	}
	return total
}

func (b *Battle) side(side Side) (*sideState, error) {
	switch side {
	case SidePlayer:
		return &b.player, nil
	case SideEnemy:
		return &b.enemy, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, int(side))
	}
}

func (b *Battle) addLog(message string) {
	b.log = append(b.log, LogEntry{Timestamp: b.clock(), Message: message})
}

func (b *Battle) publish(event Event) {
	event.BattleID = b.id
	event.Round = b.round
	event.Hand = b.hand
	if event.Timestamp.IsZero() {
		event.Timestamp = b.clock()
	}
	b.events.Publish(event)
}
