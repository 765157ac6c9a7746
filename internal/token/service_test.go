package token

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/face"
	"github.com/inkbooth/inkbooth/internal/models"
)

type fakeAnalyzer struct {
	faces []face.Face
	err   error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte) ([]face.Face, error) {
	_ = ctx
	_ = image
	return f.faces, f.err
}

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Session{}, &models.Input{}, &models.Generation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		AnalyticsEnabled:         true,
		TokenEnabled:             true,
		TokenNewImage:            3,
		TokenBonusFace:           1,
		TokenBonusSmile:          1,
		TokenBonusCuteness:       1,
		TokenImageBlockedMinutes: 240,
	}
}

func testImage(seed uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = seed + uint8(i)
	}
	return img
}

func newTestService(t *testing.T, name string, analyzer face.Analyzer) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t, name)
	svc := NewService(testConfig(), NewRepo(db), analyzer, NewMemoryLocker())
	return svc, db
}

func TestHandleUpload_NoFace_BaseAwardOnly(t *testing.T) {
	svc, db := newTestService(t, "tok_noface", &fakeAnalyzer{})

	state := InitializeSession(SessionState{})
	res := svc.HandleUpload(context.Background(), state, testImage(1), []byte("raw"))

	if res.Awarded != 3 {
		t.Fatalf("expected base award 3, got %d", res.Awarded)
	}
	if res.State.Tokens != 3 {
		t.Fatalf("expected balance 3, got %d", res.State.Tokens)
	}
	if res.FaceDetected {
		t.Fatalf("expected no face")
	}
	if res.Gender != models.GenderUnknown || res.MinAge != -1 || res.MaxAge != -1 {
		t.Fatalf("unexpected aggregation: gender=%d ages=%d..%d", res.Gender, res.MinAge, res.MaxAge)
	}

	var in models.Input
	if err := db.First(&in).Error; err != nil {
		t.Fatalf("input row: %v", err)
	}
	if in.Token != 3 || in.SHA1 != res.Fingerprint || in.Session != state.ID {
		t.Fatalf("unexpected input row: %+v", in)
	}
}

func TestHandleUpload_AnalyzerFailureDegradesToNoFace(t *testing.T) {
	svc, _ := newTestService(t, "tok_fail", &fakeAnalyzer{err: context.DeadlineExceeded})

	res := svc.HandleUpload(context.Background(), InitializeSession(SessionState{}), testImage(2), []byte("raw"))
	if res.Awarded != 3 {
		t.Fatalf("analyzer failure must award base only, got %d", res.Awarded)
	}
	if res.FaceDetected {
		t.Fatalf("analyzer failure must read as no face")
	}
}

func TestHandleUpload_Bonuses(t *testing.T) {
	cases := []struct {
		name  string
		faces []face.Face
		want  int
	}{
		{
			name:  "adult male face",
			faces: []face.Face{{Gender: models.GenderMale, MinAge: 25, MaxAge: 32}},
			want:  3 + 1,
		},
		{
			name:  "female face adds smile bonus",
			faces: []face.Face{{Gender: models.GenderFemale, MinAge: 25, MaxAge: 32}},
			want:  3 + 1 + 1,
		},
		{
			name:  "young face adds cuteness bonus",
			faces: []face.Face{{Gender: models.GenderMale, MinAge: 4, MaxAge: 6}},
			want:  3 + 1 + 1,
		},
		{
			name:  "old face adds cuteness bonus",
			faces: []face.Face{{Gender: models.GenderMale, MinAge: 60, MaxAge: 75}},
			want:  3 + 1 + 1,
		},
		{
			name: "cuteness granted once for multiple qualifying faces",
			faces: []face.Face{
				{Gender: models.GenderMale, MinAge: 4, MaxAge: 6},
				{Gender: models.GenderMale, MinAge: 65, MaxAge: 80},
			},
			want: 3 + 1 + 1,
		},
		{
			name: "all bonuses",
			faces: []face.Face{
				{Gender: models.GenderFemale, MinAge: 10, MaxAge: 15},
			},
			want: 3 + 1 + 1 + 1,
		},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, fmt.Sprintf("tok_bonus%d", i), &fakeAnalyzer{faces: tc.faces})
			res := svc.HandleUpload(context.Background(), InitializeSession(SessionState{}), testImage(uint8(10+i)), []byte("raw"))
			if res.Awarded != tc.want {
				t.Fatalf("expected award %d, got %d", tc.want, res.Awarded)
			}
		})
	}
}

func TestHandleUpload_GenderAggregation(t *testing.T) {
	svc, _ := newTestService(t, "tok_gender", &fakeAnalyzer{faces: []face.Face{
		{Gender: models.GenderMale, MinAge: 30, MaxAge: 40},
		{Gender: models.GenderFemale, MinAge: 20, MaxAge: 28},
		{Gender: models.GenderMale, MinAge: 50, MaxAge: 55},
	}})

	res := svc.HandleUpload(context.Background(), InitializeSession(SessionState{}), testImage(50), []byte("raw"))
	if res.Gender != models.GenderBoth {
		t.Fatalf("expected gender both, got %d", res.Gender)
	}
	if res.MinAge != 20 || res.MaxAge != 55 {
		t.Fatalf("expected ages 20..55, got %d..%d", res.MinAge, res.MaxAge)
	}
}

func TestHandleUpload_LockAcrossSessions(t *testing.T) {
	db := openTestDB(t, "tok_lock")
	locker := NewMemoryLocker()
	now := time.Now()
	locker.now = func() time.Time { return now }
	svc := NewService(testConfig(), NewRepo(db), &fakeAnalyzer{}, locker)

	img := testImage(99)

	a := InitializeSession(SessionState{})
	resA := svc.HandleUpload(context.Background(), a, img, []byte("raw"))
	if resA.Awarded == 0 || resA.Locked {
		t.Fatalf("first upload must be awarded: %+v", resA)
	}

	// same image from a different session within the window
	b := InitializeSession(SessionState{})
	resB := svc.HandleUpload(context.Background(), b, img, []byte("raw"))
	if !resB.Locked || resB.Awarded != 0 {
		t.Fatalf("second session must be refused: %+v", resB)
	}
	if resB.Message == "" {
		t.Fatalf("expected a wait message")
	}
	if resB.State.Tokens != 0 {
		t.Fatalf("refused upload must not change balance, got %d", resB.State.Tokens)
	}

	// after the window elapses the lock is released
	now = now.Add(241 * time.Minute)
	resB2 := svc.HandleUpload(context.Background(), b, img, []byte("raw"))
	if resB2.Locked || resB2.Awarded == 0 {
		t.Fatalf("upload after lock expiry must be awarded: %+v", resB2)
	}
}

func TestChargeForGeneration_NeverNegative(t *testing.T) {
	svc, _ := newTestService(t, "tok_charge", &fakeAnalyzer{})

	state := SessionState{ID: "s", Tokens: 2}

	if !svc.CanStartGeneration(state) {
		t.Fatalf("expected generation allowed at balance 2")
	}
	if low := svc.ChargeForGeneration(&state); low {
		t.Fatalf("balance 1 is not low yet")
	}
	if low := svc.ChargeForGeneration(&state); !low {
		t.Fatalf("expected low-balance signal at 0")
	}
	if state.Tokens != 0 {
		t.Fatalf("expected balance 0, got %d", state.Tokens)
	}
	if svc.CanStartGeneration(state) {
		t.Fatalf("generation must be refused at balance 0")
	}

	// charging at zero must not go negative
	svc.ChargeForGeneration(&state)
	if state.Tokens != 0 {
		t.Fatalf("balance went negative: %d", state.Tokens)
	}
}

func TestTokenDisabled_AlwaysAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.TokenEnabled = false
	db := openTestDB(t, "tok_disabled")
	svc := NewService(cfg, NewRepo(db), &fakeAnalyzer{}, NewMemoryLocker())

	state := SessionState{ID: "s", Tokens: 0}
	if !svc.CanStartGeneration(state) {
		t.Fatalf("disabled token feature must always allow generation")
	}
	if low := svc.ChargeForGeneration(&state); low {
		t.Fatalf("disabled token feature must never signal low balance")
	}

	res := svc.HandleUpload(context.Background(), state, testImage(7), []byte("raw"))
	if res.Awarded != 0 || res.Locked {
		t.Fatalf("disabled token feature must not award or lock: %+v", res)
	}
}

func TestInitializeSession_RoundTrip(t *testing.T) {
	fresh := InitializeSession(SessionState{})
	if fresh.ID == "" || fresh.Tokens != 0 {
		t.Fatalf("unexpected fresh session: %+v", fresh)
	}

	restored := InitializeSession(SessionState{ID: fresh.ID, Tokens: 5})
	if restored.ID != fresh.ID || restored.Tokens != 5 {
		t.Fatalf("state must round-trip unchanged: %+v", restored)
	}
}
