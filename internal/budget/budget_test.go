package budget

import (
	"strings"
	"testing"

	"readgate/internal/config"
	"readgate/internal/slogutil"
	"readgate/internal/state"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	store := state.NewStore(t.TempDir(), slogutil.NewDiscardLogger())
	return NewLedger(store, config.DefaultConfig().Budget, slogutil.NewDiscardLogger())
}

func TestInit(t *testing.T) {
	l := newTestLedger(t)

	s, err := l.Init(50000)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if s.TotalBudget != 50000 {
		t.Errorf("Expected total budget 50000, got %d", s.TotalBudget)
	}
	if s.Consumed != 0 {
		t.Errorf("Expected consumed 0, got %d", s.Consumed)
	}
	if s.SessionID == "" {
		t.Error("Expected a session id")
	}
}

func TestInit_ResetCreatesNewSessionID(t *testing.T) {
	l := newTestLedger(t)

	first, err := l.Init(50000)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	second, err := l.Init(50000)
	if err != nil {
		t.Fatalf("Second init failed: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Error("Expected reset to create a new session id")
	}
}

func TestCheckBudget_Thresholds(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Init(50000); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	res, err := l.CheckBudget(12000)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if !res.Allowed || res.Status != StatusOK {
		t.Errorf("Expected ok/allowed, got %+v", res)
	}
	if res.Remaining != 50000 {
		t.Errorf("Expected remaining 50000, got %d", res.Remaining)
	}

	// Consume 40000 -> ratio 0.8 -> warning
	if _, err := l.RecordRead("src/a.ts", 10000, LevelFull, ""); err != nil {
		t.Fatalf("RecordRead failed: %v", err)
	}
	res, err = l.CheckBudget(1000)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if res.Status != StatusWarning {
		t.Errorf("Expected warning at ratio 0.8, got %s", res.Status)
	}

	// A read that does not fit is exceeded and denied
	res, err = l.CheckBudget(20000)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if res.Allowed || res.Status != StatusExceeded {
		t.Errorf("Expected exceeded/denied, got %+v", res)
	}

	// Reducing the amount below the remaining budget allows it again
	res, err = l.CheckBudget(9999)
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if !res.Allowed {
		t.Errorf("Expected read within remaining budget to be allowed, got %+v", res)
	}
}

func TestRecordRead_ConsumedEqualsSumOfEstimates(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Init(1000000); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	reads := []struct {
		lines int
		level ReadLevel
	}{
		{100, LevelFull},
		{250, LevelChunks},
		{4000, LevelSignatures},
	}

	var want int
	for _, r := range reads {
		want += EstimateTokensForLines(r.lines, r.level)
		if _, err := l.RecordRead("src/x.ts", r.lines, r.level, "test"); err != nil {
			t.Fatalf("RecordRead failed: %v", err)
		}
	}

	s, err := l.Session()
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if s.Consumed != want {
		t.Errorf("Expected consumed %d, got %d", want, s.Consumed)
	}
	if len(s.Reads) != len(reads) {
		t.Errorf("Expected %d read entries, got %d", len(reads), len(s.Reads))
	}
}

func TestRecordRead_CriticalAlertScenario(t *testing.T) {
	// Budget 50,000; four 3,000-line full reads of 12,000 tokens each land at
	// 48,000 consumed (96%), which is critical and must alert.
	l := newTestLedger(t)
	if _, err := l.Init(50000); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var last RecordResult
	for i := 0; i < 4; i++ {
		var err error
		last, err = l.RecordRead("src/big.ts", 3000, LevelFull, "")
		if err != nil {
			t.Fatalf("RecordRead failed: %v", err)
		}
	}

	s, _ := l.Session()
	if s.Consumed != 48000 {
		t.Fatalf("Expected consumed 48000, got %d", s.Consumed)
	}
	if last.Alert == nil {
		t.Fatal("Expected an alert on the critical read")
	}
	if last.Alert.Status != StatusCritical {
		t.Errorf("Expected critical alert, got %s", last.Alert.Status)
	}
	if !strings.Contains(last.Alert.Message, "96%") {
		t.Errorf("Expected alert message to contain '96%%', got %q", last.Alert.Message)
	}
}

func TestRecordRead_TrackingIsUnconditional(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Init(100); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Recording past the budget still appends and still increments.
	res, err := l.RecordRead("src/huge.ts", 1000, LevelFull, "")
	if err != nil {
		t.Fatalf("RecordRead failed: %v", err)
	}
	if !res.Success {
		t.Error("Expected record to succeed even over budget")
	}
	if res.Alert == nil || res.Alert.Status != StatusExceeded {
		t.Errorf("Expected exceeded alert, got %+v", res.Alert)
	}

	s, _ := l.Session()
	if s.Consumed != 4000 {
		t.Errorf("Expected consumed 4000, got %d", s.Consumed)
	}
}

func TestRequestIncrease(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Init(50000); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, err := l.RequestIncrease("need to read generated schema", 25000)
	if err != nil {
		t.Fatalf("RequestIncrease failed: %v", err)
	}
	if s.TotalBudget != 75000 {
		t.Errorf("Expected total budget 75000, got %d", s.TotalBudget)
	}
	if len(s.Justifications) != 1 {
		t.Fatalf("Expected 1 justification, got %d", len(s.Justifications))
	}
	if s.Justifications[0].Amount != 25000 {
		t.Errorf("Expected justification amount 25000, got %d", s.Justifications[0].Amount)
	}

	// TotalBudget equals initial limit plus all granted justifications.
	if _, err := l.RequestIncrease("second pass", 5000); err != nil {
		t.Fatalf("Second increase failed: %v", err)
	}
	s, _ = l.Session()
	if s.TotalBudget != 80000 {
		t.Errorf("Expected total budget 80000, got %d", s.TotalBudget)
	}
}

func TestRequestIncrease_RequiresReasonAndAmount(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.RequestIncrease("", 1000); err == nil {
		t.Error("Expected error for empty reason")
	}
	if _, err := l.RequestIncrease("reason", 0); err == nil {
		t.Error("Expected error for non-positive amount")
	}
}

func TestSession_PersistsAcrossLedgers(t *testing.T) {
	dir := t.TempDir()
	store := state.NewStore(dir, slogutil.NewDiscardLogger())
	cfg := config.DefaultConfig().Budget

	l1 := NewLedger(store, cfg, slogutil.NewDiscardLogger())
	s1, err := l1.Init(50000)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := l1.RecordRead("src/a.ts", 100, LevelFull, ""); err != nil {
		t.Fatalf("RecordRead failed: %v", err)
	}

	l2 := NewLedger(state.NewStore(dir, slogutil.NewDiscardLogger()), cfg, slogutil.NewDiscardLogger())
	s2, err := l2.Session()
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if s2.SessionID != s1.SessionID {
		t.Error("Expected second ledger to load the same session")
	}
	if s2.Consumed != 400 {
		t.Errorf("Expected consumed 400, got %d", s2.Consumed)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(100, LevelFull); got != 25 {
		t.Errorf("Expected 25 tokens for 100 chars, got %d", got)
	}
	if got := EstimateTokens(101, LevelFull); got != 26 {
		t.Errorf("Expected ceil division, got %d", got)
	}
	if got := EstimateTokens(1000, LevelSignatures); got != 25 {
		t.Errorf("Expected signature level to cost a tenth, got %d", got)
	}
}
