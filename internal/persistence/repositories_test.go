package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/persistence/memory"
	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/testfixtures"
)

type backend struct {
	name string
	open func(t *testing.T) testfixtures.Repositories
}

var backends = []backend{
	{name: "memory", open: func(t *testing.T) testfixtures.Repositories { return memory.New() }},
	{name: "sqlite", open: func(t *testing.T) testfixtures.Repositories { return testfixtures.NewSQLiteHarness(t).Store }},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repos testfixtures.Repositories)) {
	t.Helper()
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			fn(t, b.open(t))
		})
	}
}

func seedProfile(t *testing.T, repos testfixtures.Repositories, userID string) persistence.Profile {
	t.Helper()
	profile := testfixtures.NewProfileFixture(testfixtures.WithProfileUserID(userID)).Persistence()
	if err := repos.UpsertProfile(context.Background(), profile); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	return profile
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }

func TestProfileRepository(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
		ctx := context.Background()
		if _, err := repos.GetProfile(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}

		base := testfixtures.ReferenceTime()
		profile := testfixtures.NewProfileFixture(
			testfixtures.WithProfileUserID("alice"),
			testfixtures.WithProfileActiveDays(time.Monday, time.Wednesday),
			testfixtures.WithProfileTimestamps(base, base),
		).Persistence()
		if err := repos.UpsertProfile(ctx, profile); err != nil {
			t.Fatalf("UpsertProfile failed: %v", err)
		}

		profile.DailyCallLimit = 5
		profile.CreatedAt = base.Add(time.Hour)
		profile.UpdatedAt = base.Add(time.Hour)
		if err := repos.UpsertProfile(ctx, profile); err != nil {
			t.Fatalf("second UpsertProfile failed: %v", err)
		}

		fetched, err := repos.GetProfile(ctx, "alice")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if fetched.DailyCallLimit != 5 || fetched.Timezone != "Asia/Tokyo" {
			t.Fatalf("unexpected profile %#v", fetched)
		}
		if len(fetched.ActiveDays) != 2 || fetched.ActiveDays[0] != "mon" || fetched.ActiveDays[1] != "wed" {
			t.Fatalf("unexpected active days %v", fetched.ActiveDays)
		}
		if !fetched.CreatedAt.Equal(base) || !fetched.UpdatedAt.Equal(base.Add(time.Hour)) {
			t.Fatalf("expected created_at kept and updated_at replaced, got %v / %v", fetched.CreatedAt, fetched.UpdatedAt)
		}
	})
}

func TestBlockedIntervalRepository(t *testing.T) {
	t.Parallel()

	t.Run("requires an owning profile and unique IDs", func(t *testing.T) {
		t.Parallel()

		forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
			ctx := context.Background()
			orphan := testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalUser("nobody")).Persistence()
			if err := repos.CreateBlockedInterval(ctx, orphan); !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
			}

			seedProfile(t, repos, "alice")
			interval := testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalUser("alice")).Persistence()
			if err := repos.CreateBlockedInterval(ctx, interval); err != nil {
				t.Fatalf("CreateBlockedInterval failed: %v", err)
			}
			if err := repos.CreateBlockedInterval(ctx, interval); !errors.Is(err, persistence.ErrDuplicate) {
				t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
			}
		})
	})

	t.Run("updates only intervals of the owner", func(t *testing.T) {
		t.Parallel()

		forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
			ctx := context.Background()
			seedProfile(t, repos, "alice")
			seedProfile(t, repos, "bob")

			interval := testfixtures.NewBlockedIntervalFixture(
				testfixtures.WithIntervalUser("alice"),
				testfixtures.WithIntervalRule(recurrence.Rule{Kind: recurrence.KindCustom, Days: recurrence.NewWeekdays(time.Tuesday, time.Thursday)}),
			).Persistence()
			if err := repos.CreateBlockedInterval(ctx, interval); err != nil {
				t.Fatalf("CreateBlockedInterval failed: %v", err)
			}

			stolen := interval
			stolen.UserID = "bob"
			if err := repos.UpdateBlockedInterval(ctx, stolen); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected persistence.ErrNotFound for foreign update, got %v", err)
			}
			if _, err := repos.GetBlockedInterval(ctx, "bob", interval.ID); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected persistence.ErrNotFound for foreign read, got %v", err)
			}

			interval.Name = "Standup"
			interval.Active = false
			interval.UpdatedAt = interval.UpdatedAt.Add(time.Hour)
			if err := repos.UpdateBlockedInterval(ctx, interval); err != nil {
				t.Fatalf("UpdateBlockedInterval failed: %v", err)
			}
			fetched, err := repos.GetBlockedInterval(ctx, "alice", interval.ID)
			if err != nil {
				t.Fatalf("GetBlockedInterval failed: %v", err)
			}
			if fetched.Name != "Standup" || fetched.Active || fetched.RepeatKind != "custom" {
				t.Fatalf("unexpected interval %#v", fetched)
			}
			if len(fetched.CustomDays) != 2 || fetched.CustomDays[0] != "tue" || fetched.CustomDays[1] != "thu" {
				t.Fatalf("unexpected custom days %v", fetched.CustomDays)
			}
		})
	})

	t.Run("lists by descending priority then creation", func(t *testing.T) {
		t.Parallel()

		forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
			ctx := context.Background()
			seedProfile(t, repos, "alice")

			base := testfixtures.ReferenceTime()
			fixtures := []persistence.BlockedInterval{
				testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalID("low"), testfixtures.WithIntervalUser("alice"), testfixtures.WithIntervalPriority(1), testfixtures.WithIntervalCreatedAt(base)).Persistence(),
				testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalID("high-late"), testfixtures.WithIntervalUser("alice"), testfixtures.WithIntervalPriority(9), testfixtures.WithIntervalCreatedAt(base.Add(time.Minute))).Persistence(),
				testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalID("high-early"), testfixtures.WithIntervalUser("alice"), testfixtures.WithIntervalPriority(9), testfixtures.WithIntervalCreatedAt(base)).Persistence(),
				testfixtures.NewBlockedIntervalFixture(testfixtures.WithIntervalID("off"), testfixtures.WithIntervalUser("alice"), testfixtures.WithIntervalPriority(10), testfixtures.WithIntervalActive(false)).Persistence(),
			}
			for _, interval := range fixtures {
				if err := repos.CreateBlockedInterval(ctx, interval); err != nil {
					t.Fatalf("CreateBlockedInterval(%s) failed: %v", interval.ID, err)
				}
			}

			all, err := repos.ListBlockedIntervals(ctx, "alice", false)
			if err != nil {
				t.Fatalf("ListBlockedIntervals failed: %v", err)
			}
			if got := intervalIDs(all); !equalStrings(got, []string{"off", "high-early", "high-late", "low"}) {
				t.Fatalf("unexpected order %v", got)
			}

			active, err := repos.ListBlockedIntervals(ctx, "alice", true)
			if err != nil {
				t.Fatalf("ListBlockedIntervals failed: %v", err)
			}
			if got := intervalIDs(active); !equalStrings(got, []string{"high-early", "high-late", "low"}) {
				t.Fatalf("unexpected active order %v", got)
			}
		})
	})
}

func TestScheduleStateRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates at version one and rejects stale versions", func(t *testing.T) {
		t.Parallel()

		forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
			ctx := context.Background()
			if _, err := repos.LoadScheduleState(ctx, "alice"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected persistence.ErrNotFound, got %v", err)
			}
			if _, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{}, 1); !errors.Is(err, persistence.ErrVersionConflict) {
				t.Fatalf("expected persistence.ErrVersionConflict for missing row, got %v", err)
			}

			due := testfixtures.ReferenceTime().Add(90 * time.Minute)
			today := "2023-10-25"
			created, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{
				NextCallDue:    timePtr(due),
				LastGenerated:  timePtr(testfixtures.ReferenceTime()),
				CallsToday:     intPtr(0),
				DailyResetDate: &today,
			}, 0)
			if err != nil {
				t.Fatalf("ConditionalWrite failed: %v", err)
			}
			if created.Version != 1 || created.NextCallDue == nil || !created.NextCallDue.Equal(due) {
				t.Fatalf("unexpected created state %#v", created)
			}

			if _, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{CallsToday: intPtr(3)}, 0); !errors.Is(err, persistence.ErrVersionConflict) {
				t.Fatalf("expected persistence.ErrVersionConflict for stale create, got %v", err)
			}

			updated, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{
				ClearNextCallDue: true,
				LastCallTime:     timePtr(due),
				CallsToday:       intPtr(1),
			}, 1)
			if err != nil {
				t.Fatalf("ConditionalWrite failed: %v", err)
			}
			loaded, err := repos.LoadScheduleState(ctx, "alice")
			if err != nil {
				t.Fatalf("LoadScheduleState failed: %v", err)
			}
			if loaded.Version != 2 || updated.Version != 2 {
				t.Fatalf("expected version 2, got %d / %d", loaded.Version, updated.Version)
			}
			if loaded.NextCallDue != nil || loaded.LastCallTime == nil || !loaded.LastCallTime.Equal(due) {
				t.Fatalf("unexpected call times %#v", loaded)
			}
			if loaded.CallsToday != 1 || loaded.DailyResetDate != today || loaded.LastGenerated == nil {
				t.Fatalf("expected untouched fields to survive, got %#v", loaded)
			}
		})
	})

	t.Run("admits exactly one writer per version", func(t *testing.T) {
		t.Parallel()

		forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
			ctx := context.Background()
			if _, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{}, 0); err != nil {
				t.Fatalf("ConditionalWrite failed: %v", err)
			}

			const writers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
				failures  []error
			)
			for i := range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repos.ConditionalWrite(ctx, "alice", persistence.ScheduleStatePatch{CallsToday: intPtr(i)}, 1)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, persistence.ErrVersionConflict):
						conflicts++
					default:
						failures = append(failures, err)
					}
				}()
			}
			wg.Wait()

			if len(failures) > 0 {
				t.Fatalf("unexpected errors %v", failures)
			}
			if successes != 1 || conflicts != writers-1 {
				t.Fatalf("expected one success and %d conflicts, got %d / %d", writers-1, successes, conflicts)
			}
			state, err := repos.LoadScheduleState(ctx, "alice")
			if err != nil {
				t.Fatalf("LoadScheduleState failed: %v", err)
			}
			if state.Version != 2 {
				t.Fatalf("expected version 2, got %d", state.Version)
			}
		})
	})
}

func TestCallAttemptRepository(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, repos testfixtures.Repositories) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		scheduled := base.Add(-time.Hour)
		records := []persistence.CallAttempt{
			testfixtures.NewCallAttemptFixture(testfixtures.WithAttemptUser("alice"), testfixtures.WithAttemptActualTime(base), testfixtures.WithAttemptScheduled(scheduled), testfixtures.WithAttemptRating(4)).Persistence(),
			testfixtures.NewCallAttemptFixture(testfixtures.WithAttemptUser("alice"), testfixtures.WithAttemptActualTime(base.Add(2*time.Hour)), testfixtures.WithAttemptOutcome("skipped")).Persistence(),
			testfixtures.NewCallAttemptFixture(testfixtures.WithAttemptUser("alice"), testfixtures.WithAttemptActualTime(base.Add(time.Hour))).Persistence(),
			testfixtures.NewCallAttemptFixture(testfixtures.WithAttemptUser("bob"), testfixtures.WithAttemptActualTime(base)).Persistence(),
		}
		for _, record := range records {
			if err := repos.AppendCallAttempt(ctx, record); err != nil {
				t.Fatalf("AppendCallAttempt failed: %v", err)
			}
		}
		if err := repos.AppendCallAttempt(ctx, records[0]); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}

		listed, err := repos.ListCallAttempts(ctx, "alice", 0)
		if err != nil {
			t.Fatalf("ListCallAttempts failed: %v", err)
		}
		if len(listed) != 3 || listed[0].ID != records[1].ID || listed[1].ID != records[2].ID || listed[2].ID != records[0].ID {
			t.Fatalf("expected most recent first, got %#v", listed)
		}
		oldest := listed[2]
		if oldest.Rating == nil || *oldest.Rating != 4 || oldest.ScheduledTime == nil || !oldest.ScheduledTime.Equal(scheduled) {
			t.Fatalf("unexpected oldest record %#v", oldest)
		}
		if listed[0].Rating != nil || listed[0].ScheduledTime != nil || listed[0].Outcome != "skipped" {
			t.Fatalf("unexpected newest record %#v", listed[0])
		}

		limited, err := repos.ListCallAttempts(ctx, "alice", 2)
		if err != nil {
			t.Fatalf("ListCallAttempts failed: %v", err)
		}
		if len(limited) != 2 || limited[0].ID != records[1].ID {
			t.Fatalf("unexpected limited page %#v", limited)
		}
	})
}

func TestScheduleStatePatchApply(t *testing.T) {
	t.Parallel()

	due := testfixtures.ReferenceTime()
	state := persistence.ScheduleState{UserID: "alice", NextCallDue: timePtr(due), CallsToday: 2, Version: 4}

	cleared := persistence.ScheduleStatePatch{ClearNextCallDue: true}.Apply(state)
	if cleared.NextCallDue != nil || cleared.CallsToday != 2 || cleared.Version != 4 {
		t.Fatalf("unexpected cleared state %#v", cleared)
	}

	later := due.Add(time.Hour)
	replaced := persistence.ScheduleStatePatch{ClearNextCallDue: true, NextCallDue: timePtr(later)}.Apply(state)
	if replaced.NextCallDue == nil || !replaced.NextCallDue.Equal(later) {
		t.Fatalf("expected explicit value to win over clear, got %#v", replaced)
	}
	if state.NextCallDue == replaced.NextCallDue {
		t.Fatal("expected Apply to copy time pointers")
	}
}

func intervalIDs(intervals []persistence.BlockedInterval) []string {
	ids := make([]string, 0, len(intervals))
	for _, interval := range intervals {
		ids = append(ids, interval.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
