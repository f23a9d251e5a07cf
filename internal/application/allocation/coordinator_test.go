package allocation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/application/restock"
	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApproveThenReturn_EndToEnd(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 3)
		req := f.submit(t, empEli, asset.AssetID)
		assert.Equal(t, domain.RequestPending, req.Status)
		assert.Equal(t, asset.Name, req.AssetName)
		assert.Equal(t, hrActor.Email, req.HREmail)
		assert.Equal(t, 3, f.available(t, asset.AssetID))

		res, err := f.c.Approve(ctx, hrActor, req.RequestID)
		require.NoError(t, err)
		assert.Equal(t, 2, f.available(t, asset.AssetID))
		assert.Equal(t, domain.RequestApproved, res.Request.Status)
		require.NotNil(t, res.Request.DecisionDate)
		require.NotNil(t, res.Request.ProcessedBy)
		assert.Equal(t, hrActor.Email, *res.Request.ProcessedBy)
		assert.Equal(t, domain.AssignmentAssigned, res.Assignment.Status)
		assert.Equal(t, req.RequestDate.Unix(), res.Assignment.RequestDate.Unix())
		assert.True(t, res.AffiliationCreated)
		assert.Equal(t, int64(1), f.assignmentsFor(t, req.RequestID))
		assert.Equal(t, int64(1), f.activeAffiliations(t, empEli.Email, "Acme"))

		var aff domain.Affiliation
		require.NoError(t, f.db.Where("employee_email = ?", empEli.Email).First(&aff).Error)
		assert.Equal(t, hrActor.CompanyLogo, aff.CompanyLogo)

		returned, err := f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
		require.NoError(t, err)
		assert.Equal(t, domain.AssignmentReturned, returned.Status)
		assert.NotNil(t, returned.ReturnDate)
		assert.Equal(t, 3, f.available(t, asset.AssetID))
	})
}

func TestApprove_OutOfStockLeavesRequestPending(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 0)
		req := f.submit(t, empEli, asset.AssetID)

		_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Equal(t, KindConflict, KindOf(err))

		got := f.request(t, req.RequestID)
		assert.Equal(t, domain.RequestPending, got.Status)
		assert.Nil(t, got.DecisionDate)
		assert.Equal(t, 0, f.available(t, asset.AssetID))
		assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
	})
}

func TestApprove_ConcurrentApprovalsOnLastUnit(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 1)
		reqs := []*domain.Request{f.submit(t, empEli, asset.AssetID), f.submit(t, empMia, asset.AssetID)}

		errs := make([]error, len(reqs))
		var wg sync.WaitGroup
		for i, r := range reqs {
			wg.Add(1)
			go func(i int, id uuid.UUID) {
				defer wg.Done()
				_, errs[i] = f.c.Approve(context.Background(), hrActor, id)
			}(i, r.RequestID)
		}
		wg.Wait()

		succeeded, outOfStock := 0, 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrOutOfStock)
			if errors.Is(err, ErrOutOfStock) {
				outOfStock++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, outOfStock)
		assert.Equal(t, 0, f.available(t, asset.AssetID))
		assert.Equal(t, int64(1), f.count(t, &domain.Assignment{}, "asset_id = ?", asset.AssetID))
		assert.Equal(t, int64(1), f.count(t, &domain.Request{}, "status = ?", domain.RequestPending))
	})
}

func TestApproveAndReject_ConcurrentOnSameRequest(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 2)
		req := f.submit(t, empEli, asset.AssetID)

		var approveErr, rejectErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = f.c.Approve(context.Background(), hrActor, req.RequestID)
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = f.c.Reject(context.Background(), hrActor, req.RequestID)
		}()
		wg.Wait()

		got := f.request(t, req.RequestID)
		if approveErr == nil {
			assert.ErrorIs(t, rejectErr, ErrAlreadyProcessed)
			assert.Equal(t, domain.RequestApproved, got.Status)
			assert.Equal(t, 1, f.available(t, asset.AssetID))
			assert.Equal(t, int64(1), f.assignmentsFor(t, req.RequestID))
		} else {
			assert.NoError(t, rejectErr)
			assert.ErrorIs(t, approveErr, ErrAlreadyProcessed)
			assert.Equal(t, domain.RequestRejected, got.Status)
			assert.Equal(t, 2, f.available(t, asset.AssetID))
			assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
		}
	})
}

// rejectBeforeTransition lands a reject on the request just before Approve's own transition,
// as a concurrent HR decision would.
func rejectBeforeTransition(f *fixture, requestID uuid.UUID) {
	f.faults.arm("update", "requests", 0, func(tx *gorm.DB) {
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE requests SET status = ? WHERE request_id = ?", domain.RequestRejected, requestID)
	})
}

func TestApprove_LosingToRejectGivesStockBack(t *testing.T) {
	f := setupCoordinator(t, false)
	asset := f.asset(t, 2)
	req := f.submit(t, empEli, asset.AssetID)
	rejectBeforeTransition(f, req.RequestID)

	_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, domain.RequestRejected, f.request(t, req.RequestID).Status)
	assert.Equal(t, 2, f.available(t, asset.AssetID))
	assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
}

func TestApprove_LosingTransitionRollsBackInTransaction(t *testing.T) {
	f := setupCoordinator(t, true)
	asset := f.asset(t, 2)
	req := f.submit(t, empEli, asset.AssetID)
	rejectBeforeTransition(f, req.RequestID)

	_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 2, f.available(t, asset.AssetID))
	assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
}

func TestApprove_AssignmentFailureUndoesApproval(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)
		f.faults.fail("create", "assigned_assets", 0)

		_, err := f.c.Approve(ctx, hrActor, req.RequestID)
		require.Error(t, err)
		assert.Equal(t, KindInternal, KindOf(err))
		assert.ErrorIs(t, err, errInjected)

		got := f.request(t, req.RequestID)
		assert.Equal(t, domain.RequestPending, got.Status)
		assert.Nil(t, got.DecisionDate)
		assert.Nil(t, got.ProcessedBy)
		assert.Equal(t, 1, f.available(t, asset.AssetID))
		assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))

		_, err = f.c.Approve(ctx, hrActor, req.RequestID)
		require.NoError(t, err)
		assert.Equal(t, 0, f.available(t, asset.AssetID))
	})
}

func TestApprove_AffiliationFailureUndoesApproval(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)
		f.faults.fail("create", "employee_affiliations", 0)

		_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
		assert.Equal(t, KindInternal, KindOf(err))
		assert.Equal(t, domain.RequestPending, f.request(t, req.RequestID).Status)
		assert.Equal(t, 1, f.available(t, asset.AssetID))
		assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
		assert.Equal(t, int64(0), f.activeAffiliations(t, empEli.Email, "Acme"))
	})
}

func TestApprove_FailedUndoIsQueuedForRelay(t *testing.T) {
	f := setupCoordinator(t, false)
	ctx := context.Background()
	asset := f.asset(t, 2)
	req := f.submit(t, empEli, asset.AssetID)
	f.faults.fail("create", "assigned_assets", 0)
	// The first asset update is the decrement, the second the undo.
	f.faults.fail("update", "assets", 1)

	_, err := f.c.Approve(ctx, hrActor, req.RequestID)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, 1, f.available(t, asset.AssetID))

	var tasks []domain.RestockTask
	require.NoError(t, f.db.Where("status = ?", domain.RestockPending).Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.True(t, strings.HasPrefix(tasks[0].Key, restock.KeyUndoApprove+req.RequestID.String()))
	assert.Equal(t, asset.AssetID, tasks[0].AssetID)

	applied, err := (&restock.Relay{Log: f.c.Restock}).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 2, f.available(t, asset.AssetID))
}

func TestApprove_FinishesWhenCallerCancels(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.faults.arm("update", "assets", 0, func(*gorm.DB) { cancel() })

		_, err := f.c.Approve(ctx, hrActor, req.RequestID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestApproved, f.request(t, req.RequestID).Status)
		assert.Equal(t, int64(1), f.assignmentsFor(t, req.RequestID))
	})
}

func TestApprove_Errors(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)

		_, err := f.c.Approve(ctx, hrActor, uuid.New())
		assert.ErrorIs(t, err, ErrRequestNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))

		_, err = f.c.Approve(ctx, otherHR, req.RequestID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.c.Approve(ctx, empEli, req.RequestID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.c.Reject(ctx, hrActor, req.RequestID)
		require.NoError(t, err)
		_, err = f.c.Approve(ctx, hrActor, req.RequestID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.Equal(t, ReasonAlreadyProcessed, ReasonOf(err))
		assert.Equal(t, 1, f.available(t, asset.AssetID))
	})
}

func TestApprove_DeletedAssetIsUnavailable(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)
		require.NoError(t, f.db.Where("asset_id = ?", asset.AssetID).Delete(&domain.Asset{}).Error)

		_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
		assert.ErrorIs(t, err, ErrAssetUnavailable)
		assert.Equal(t, domain.RequestPending, f.request(t, req.RequestID).Status)
	})
}

func TestApprove_AssetDeletedAfterRead(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)
		f.faults.arm("update", "assets", 0, func(tx *gorm.DB) {
			tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM assets WHERE asset_id = ?", asset.AssetID)
		})

		_, err := f.c.Approve(context.Background(), hrActor, req.RequestID)
		assert.ErrorIs(t, err, ErrAssetUnavailable)
		assert.Equal(t, domain.RequestPending, f.request(t, req.RequestID).Status)
	})
}

func TestReject(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 1)
		req := f.submit(t, empEli, asset.AssetID)

		rejected, err := f.c.Reject(ctx, hrActor, req.RequestID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestRejected, rejected.Status)
		assert.NotNil(t, rejected.DecisionDate)
		assert.Equal(t, 1, f.available(t, asset.AssetID))

		_, err = f.c.Reject(ctx, hrActor, req.RequestID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		_, err = f.c.Reject(ctx, hrActor, uuid.New())
		assert.ErrorIs(t, err, ErrRequestNotFound)
		assert.Equal(t, int64(0), f.assignmentsFor(t, req.RequestID))
	})
}

func TestReturn_TwiceDoesNotCreditTwice(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 2)
		res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
		require.NoError(t, err)
		_, err = f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
		require.NoError(t, err)
		assert.Equal(t, 2, f.available(t, asset.AssetID))

		_, err = f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
		assert.ErrorIs(t, err, ErrInvalidReturn)
		assert.Equal(t, ReasonInvalidReturn, ReasonOf(err))
		assert.Equal(t, 2, f.available(t, asset.AssetID))
	})
}

func TestReturn_Errors(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 1)
		res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
		require.NoError(t, err)

		_, err = f.c.Return(ctx, empEli, uuid.New())
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
		_, err = f.c.Return(ctx, empMia, res.Assignment.AssignmentID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.c.Return(ctx, hrActor, res.Assignment.AssignmentID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, 0, f.available(t, asset.AssetID))
	})
}

func TestReturn_DeletedAssetStillCloses(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 1)
		res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
		require.NoError(t, err)
		require.NoError(t, f.db.Where("asset_id = ?", asset.AssetID).Delete(&domain.Asset{}).Error)

		returned, err := f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
		require.NoError(t, err)
		assert.Equal(t, domain.AssignmentReturned, returned.Status)
	})
}

func TestReturn_TransactionRollsBackOnIncrementFailure(t *testing.T) {
	f := setupCoordinator(t, true)
	ctx := context.Background()
	asset := f.asset(t, 1)
	res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
	require.NoError(t, err)
	f.faults.fail("update", "assets", 0)

	_, err = f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
	assert.Equal(t, KindInternal, KindOf(err))
	got, err := f.c.Assignments.Get(ctx, res.Assignment.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentAssigned, got.Status)
	assert.Equal(t, 0, f.available(t, asset.AssetID))
}

func TestReturn_FailedCreditIsRetriedByRelay(t *testing.T) {
	f := setupCoordinator(t, false)
	ctx := context.Background()
	asset := f.asset(t, 1)
	res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
	require.NoError(t, err)
	f.faults.fail("update", "assets", 0)

	returned, err := f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentReturned, returned.Status)
	assert.Equal(t, 0, f.available(t, asset.AssetID))

	task, err := f.c.Restock.Get(ctx, restock.ReturnKey(res.Assignment.AssignmentID))
	require.NoError(t, err)
	assert.Equal(t, domain.RestockPending, task.Status)
	assert.Equal(t, 1, task.Attempts)

	relay := &restock.Relay{Log: f.c.Restock, MaxAttempts: 5}
	applied, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, f.available(t, asset.AssetID))

	applied, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, f.available(t, asset.AssetID))
}

func TestReturn_CreditAppliedImmediatelyInLogMode(t *testing.T) {
	f := setupCoordinator(t, false)
	ctx := context.Background()
	asset := f.asset(t, 1)
	res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
	require.NoError(t, err)

	_, err = f.c.Return(ctx, empEli, res.Assignment.AssignmentID)
	require.NoError(t, err)
	task, err := f.c.Restock.Get(ctx, restock.ReturnKey(res.Assignment.AssignmentID))
	require.NoError(t, err)
	assert.Equal(t, domain.RestockApplied, task.Status)
	assert.Equal(t, 1, f.available(t, asset.AssetID))
}

func TestApprove_SameEmployeeAndCompanyKeepsOneAffiliation(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 5)
		first := f.submit(t, empEli, asset.AssetID)
		second := f.submit(t, empEli, asset.AssetID)

		var wg sync.WaitGroup
		results := make([]*ApproveResult, 2)
		for i, id := range []uuid.UUID{first.RequestID, second.RequestID} {
			wg.Add(1)
			go func(i int, id uuid.UUID) {
				defer wg.Done()
				res, err := f.c.Approve(ctx, hrActor, id)
				assert.NoError(t, err)
				results[i] = res
			}(i, id)
		}
		wg.Wait()

		created := 0
		for _, r := range results {
			require.NotNil(t, r)
			if r.AffiliationCreated {
				created++
			}
		}
		assert.Equal(t, 1, created)
		assert.Equal(t, int64(1), f.activeAffiliations(t, empEli.Email, "Acme"))
		assert.Equal(t, 3, f.available(t, asset.AssetID))
	})
}

func TestRemoveEmployee_NextApprovalReaffiliates(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 2)
		_, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
		require.NoError(t, err)

		var aff domain.Affiliation
		require.NoError(t, f.db.Where("employee_email = ?", empEli.Email).First(&aff).Error)

		assert.ErrorIs(t, f.c.RemoveEmployee(ctx, otherHR, aff.AffiliationID), ErrEmployeeNotFound)
		assert.ErrorIs(t, f.c.RemoveEmployee(ctx, empEli, aff.AffiliationID), ErrForbidden)
		require.NoError(t, f.c.RemoveEmployee(ctx, hrActor, aff.AffiliationID))
		assert.ErrorIs(t, f.c.RemoveEmployee(ctx, hrActor, aff.AffiliationID), ErrEmployeeNotFound)
		assert.Equal(t, int64(0), f.activeAffiliations(t, empEli.Email, "Acme"))

		res, err := f.c.Approve(ctx, hrActor, f.submit(t, empEli, asset.AssetID).RequestID)
		require.NoError(t, err)
		assert.True(t, res.AffiliationCreated)
		assert.Equal(t, int64(1), f.activeAffiliations(t, empEli.Email, "Acme"))
		assert.Equal(t, int64(2), f.count(t, &domain.Affiliation{}, "employee_email = ?", empEli.Email))
	})
}

func TestSubmitRequest(t *testing.T) {
	f := setupCoordinator(t, true)
	ctx := context.Background()
	asset := f.asset(t, 0)

	r, err := f.c.SubmitRequest(ctx, empEli, asset.AssetID, "  need it  ")
	require.NoError(t, err)
	assert.Equal(t, "need it", r.Note)
	assert.Equal(t, empEli.Name, r.RequesterName)
	assert.Equal(t, "Acme", r.CompanyName)
	assert.Equal(t, domain.AssetReturnable, r.AssetType)

	_, err = f.c.SubmitRequest(ctx, empEli, uuid.New(), "")
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = f.c.SubmitRequest(ctx, hrActor, asset.AssetID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateAsset(t *testing.T) {
	f := setupCoordinator(t, true)
	ctx := context.Background()

	a, err := f.c.CreateAsset(ctx, hrActor, inventory.CreateAssetInput{Name: "Chair", Type: domain.AssetNonReturnable, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, a.TotalQuantity)
	assert.Equal(t, 4, a.AvailableQuantity)
	assert.Equal(t, hrActor.Email, a.HREmail)
	assert.Equal(t, "Acme", a.CompanyName)

	_, err = f.c.CreateAsset(ctx, hrActor, inventory.CreateAssetInput{Name: "Chair", Type: domain.AssetReturnable, Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	_, err = f.c.CreateAsset(ctx, empEli, inventory.CreateAssetInput{Name: "Chair", Type: domain.AssetReturnable, Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateAsset_CompanyRequired(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		bare := Actor{Email: "hr@initech.io", Name: "Ira", Role: hrActor.Role}

		_, err := f.c.CreateAsset(ctx, bare, inventory.CreateAssetInput{Name: "Dock", Type: domain.AssetReturnable, Quantity: 2})
		assert.ErrorIs(t, err, ErrCompanyRequired)
		assert.Equal(t, KindInvalidArgument, KindOf(err))
		_, err = f.c.CreateAsset(ctx, bare, inventory.CreateAssetInput{Name: "Dock", Type: domain.AssetReturnable, Quantity: 2, CompanyName: "   "})
		assert.Equal(t, KindInvalidArgument, KindOf(err))

		asset, err := f.c.CreateAsset(ctx, bare, inventory.CreateAssetInput{Name: "Dock", Type: domain.AssetReturnable, Quantity: 2, CompanyName: " Initech "})
		require.NoError(t, err)
		assert.Equal(t, "Initech", asset.CompanyName)

		req := f.submit(t, empEli, asset.AssetID)
		res, err := f.c.Approve(ctx, bare, req.RequestID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestApproved, res.Request.Status)
		assert.Equal(t, 1, f.available(t, asset.AssetID))
		assert.Equal(t, int64(1), f.activeAffiliations(t, empEli.Email, "Initech"))
	})
}

func TestCreateAsset_IdentityCompanyWinsOverBody(t *testing.T) {
	f := setupCoordinator(t, true)
	a, err := f.c.CreateAsset(context.Background(), hrActor, inventory.CreateAssetInput{
		Name: "Dock", Type: domain.AssetReturnable, Quantity: 1, CompanyName: "Globex",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.CompanyName)
}

func TestApprove_CompensationKeepsApprovalWhenAssignmentAlreadyReturned(t *testing.T) {
	f := setupCoordinator(t, false)
	ctx := context.Background()
	asset := f.asset(t, 2)
	req := f.submit(t, empEli, asset.AssetID)
	f.faults.fail("create", "employee_affiliations", 0)
	// The assignment is returned between its creation and the discard.
	f.faults.arm("delete", "assigned_assets", 0, func(tx *gorm.DB) {
		tx.Session(&gorm.Session{NewDB: true}).Model(&domain.Assignment{}).
			Where("request_id = ?", req.RequestID).
			Update("status", domain.AssignmentReturned)
	})

	_, err := f.c.Approve(ctx, hrActor, req.RequestID)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, errInjected)

	assert.Equal(t, domain.RequestApproved, f.request(t, req.RequestID).Status)
	assert.Equal(t, int64(1), f.assignmentsFor(t, req.RequestID))
	assert.Equal(t, 1, f.available(t, asset.AssetID))
}

func TestQuantityStaysWithinBoundsAcrossMixedTraffic(t *testing.T) {
	eachMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		asset := f.asset(t, 2)
		emps := []Actor{empEli, empMia, {Email: "zoe@mail.io", Name: "Zoe", Role: empEli.Role}, {Email: "ian@mail.io", Name: "Ian", Role: empEli.Role}}

		var wg sync.WaitGroup
		for _, emp := range emps {
			wg.Add(1)
			go func(emp Actor) {
				defer wg.Done()
				r, err := f.c.SubmitRequest(ctx, emp, asset.AssetID, "")
				if !assert.NoError(t, err) {
					return
				}
				res, err := f.c.Approve(ctx, hrActor, r.RequestID)
				if err != nil {
					assert.ErrorIs(t, err, ErrOutOfStock)
					return
				}
				_, err = f.c.Return(ctx, emp, res.Assignment.AssignmentID)
				assert.NoError(t, err)
			}(emp)
		}
		wg.Wait()

		a, err := f.c.Inventory.Get(ctx, asset.AssetID)
		require.NoError(t, err)
		assert.Equal(t, a.TotalQuantity, a.AvailableQuantity)
		assert.Equal(t, int64(0), f.count(t, &domain.Assignment{}, "status = ?", domain.AssignmentAssigned))
	})
}

func TestErrorMatching(t *testing.T) {
	wrapped := internal("boom", errInjected)
	assert.ErrorIs(t, wrapped, ErrInternal)
	assert.ErrorIs(t, wrapped, errInjected)
	assert.NotErrorIs(t, ErrOutOfStock, ErrAlreadyProcessed)
	assert.NotErrorIs(t, ErrRequestNotFound, ErrAssignmentNotFound)
	assert.Equal(t, KindInternal, KindOf(errInjected))
	assert.Equal(t, "", ReasonOf(errInjected))
	assert.Equal(t, "boom: injected store failure", wrapped.Error())
}
