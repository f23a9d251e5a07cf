package allocation

import (
	"context"
	"errors"
	"strings"

	"assetverse-backend/internal/application/affiliations"
	"assetverse-backend/internal/application/assignments"
	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/application/requests"
	"assetverse-backend/internal/application/restock"
	"assetverse-backend/internal/domain"
	"assetverse-backend/internal/ids"
	"assetverse-backend/internal/obs"
	"assetverse-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Coordinator runs the request workflow. It is the only component that writes to more than
// one store per call.
//
// With Atomic set, every multi-store step runs in one database transaction and a failure
// rolls all of it back. Without it, each store call commits on its own and failures after
// the stock decrement are undone with compensating writes.
// In that mode a failed approval may be visible as approved until it is reverted to pending.
type Coordinator struct {
	DB           *gorm.DB
	Inventory    *inventory.Store
	Requests     *requests.Ledger
	Assignments  *assignments.Ledger
	Affiliations *affiliations.Registry
	Restock      *restock.Log
	Atomic       bool
}

// New wires a Coordinator and its stores onto db.
func New(db *gorm.DB, atomic bool) *Coordinator {
	inv := &inventory.Store{DB: db}
	return &Coordinator{
		DB:           db,
		Inventory:    inv,
		Requests:     &requests.Ledger{DB: db},
		Assignments:  &assignments.Ledger{DB: db},
		Affiliations: &affiliations.Registry{DB: db},
		Restock:      &restock.Log{DB: db, Inventory: inv},
		Atomic:       atomic,
	}
}

type stores struct {
	inv  *inventory.Store
	reqs *requests.Ledger
	asg  *assignments.Ledger
	aff  *affiliations.Registry
}

func (c *Coordinator) bind(tx *gorm.DB) stores {
	return stores{
		inv:  c.Inventory.WithTx(tx),
		reqs: c.Requests.WithTx(tx),
		asg:  c.Assignments.WithTx(tx),
		aff:  c.Affiliations.WithTx(tx),
	}
}

func (c *Coordinator) direct() stores {
	return stores{inv: c.Inventory, reqs: c.Requests, asg: c.Assignments, aff: c.Affiliations}
}

// ApproveResult is what a successful approval produced.
type ApproveResult struct {
	Request            *domain.Request    `json:"request"`
	Assignment         *domain.Assignment `json:"assignment"`
	AffiliationCreated bool               `json:"affiliation_created"`
}

// CreateAsset adds an asset to the HR's pool. The company comes from the HR identity and
// falls back to in.CompanyName; an asset without a company could never be approved.
func (c *Coordinator) CreateAsset(ctx context.Context, hr Actor, in inventory.CreateAssetInput) (a *domain.Asset, err error) {
	defer func() { record("create_asset", err) }()
	if !hr.can(constants.CreateAsset) {
		return nil, ErrForbidden
	}
	in.HREmail = hr.Email
	if company := strings.TrimSpace(hr.CompanyName); company != "" {
		in.CompanyName = company
	}
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.CompanyName == "" {
		return nil, ErrCompanyRequired
	}
	a, err = c.Inventory.CreateAsset(ctx, in)
	if err != nil {
		if errors.Is(err, inventory.ErrInvalidQuantity) || errors.Is(err, inventory.ErrInvalidAsset) {
			return nil, invalidArgument(err)
		}
		return nil, internal("Failed to create asset", err)
	}
	return a, nil
}

// SubmitRequest records a pending request by employee for one unit of assetID. Stock is
// not touched until a decision.
func (c *Coordinator) SubmitRequest(ctx context.Context, employee Actor, assetID uuid.UUID, note string) (r *domain.Request, err error) {
	defer func() { record("submit", err) }()
	if !employee.can(constants.RequestAsset) {
		return nil, ErrForbidden
	}
	asset, err := c.Inventory.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, inventory.ErrAssetNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, internal("Failed to load asset", err)
	}
	r, err = c.Requests.Create(ctx, &domain.Request{
		AssetID:        asset.AssetID,
		AssetName:      asset.Name,
		AssetType:      asset.Type,
		RequesterEmail: employee.Email,
		RequesterName:  employee.Name,
		HREmail:        asset.HREmail,
		CompanyName:    asset.CompanyName,
		Note:           strings.TrimSpace(note),
	})
	if err != nil {
		if errors.Is(err, requests.ErrInvalidRequest) {
			return nil, invalidArgument(err)
		}
		return nil, internal("Failed to create request", err)
	}
	return r, nil
}

// loadPending loads a request hr may decide, failing unless it is still pending.
func (c *Coordinator) loadPending(ctx context.Context, hr Actor, requestID uuid.UUID) (*domain.Request, error) {
	if !hr.can(constants.DecideRequest) {
		return nil, ErrForbidden
	}
	req, err := c.Requests.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, requests.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, internal("Failed to load request", err)
	}
	if req.HREmail != hr.Email {
		return nil, ErrForbidden
	}
	if req.Status != domain.RequestPending {
		return nil, ErrAlreadyProcessed
	}
	return req, nil
}

// Approve takes one unit of stock for the request, marks it approved, opens the assignment
// and makes sure the requester is affiliated with the company. A request that finds no
// stock stays pending so it can be approved later.
func (c *Coordinator) Approve(ctx context.Context, hr Actor, requestID uuid.UUID) (res *ApproveResult, err error) {
	defer func() { record("approve", err) }()
	req, err := c.loadPending(ctx, hr, requestID)
	if err != nil {
		return nil, err
	}
	asset, err := c.Inventory.Get(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, inventory.ErrAssetNotFound) {
			return nil, ErrAssetUnavailable
		}
		return nil, internal("Failed to load asset", err)
	}

	// From the first write on the call runs to a consistent end even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	if !c.Atomic {
		return c.approveCompensated(ctx, hr, req, asset)
	}
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		res, txErr = c.approveSteps(ctx, c.bind(tx), hr, req, asset)
		return txErr
	})
	if err != nil {
		return nil, asAllocationError("Failed to approve request", err)
	}
	return res, nil
}

// approveSteps runs the approval inside a transaction; any error rolls every step back.
func (c *Coordinator) approveSteps(ctx context.Context, s stores, hr Actor, req *domain.Request, asset *domain.Asset) (*ApproveResult, error) {
	if err := c.takeUnit(ctx, s.inv, asset.AssetID); err != nil {
		return nil, err
	}
	approved, err := s.reqs.TryTransition(ctx, req.RequestID, domain.RequestPending, domain.RequestApproved, hr.Email)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, ErrAlreadyProcessed
	}
	assignment, err := s.asg.Create(ctx, newAssignment(approved, asset))
	if err != nil {
		return nil, err
	}
	created, err := s.aff.EnsureActive(ctx, approved.RequesterEmail, approved.CompanyName, affiliationFields(approved, hr))
	if err != nil {
		return nil, err
	}
	return &ApproveResult{Request: approved, Assignment: assignment, AffiliationCreated: created}, nil
}

// approveCompensated runs the approval with autocommitting store calls. Every failure after
// the decrement undoes the writes already made, newest first.
func (c *Coordinator) approveCompensated(ctx context.Context, hr Actor, req *domain.Request, asset *domain.Asset) (*ApproveResult, error) {
	s := c.direct()
	if err := c.takeUnit(ctx, s.inv, asset.AssetID); err != nil {
		return nil, asAllocationError("Failed to reserve stock", err)
	}
	attempt := ids.New()

	approved, err := s.reqs.TryTransition(ctx, req.RequestID, domain.RequestPending, domain.RequestApproved, hr.Email)
	if err != nil || approved == nil {
		if undoErr := c.giveBackUnit(ctx, req, attempt); undoErr != nil {
			return nil, internal("Failed to undo stock reservation", undoErr)
		}
		if err != nil {
			return nil, internal("Failed to approve request", err)
		}
		return nil, ErrAlreadyProcessed
	}

	assignment, err := s.asg.Create(ctx, newAssignment(approved, asset))
	if err != nil {
		return nil, c.rollbackApproval(ctx, req, nil, attempt, err)
	}
	created, err := s.aff.EnsureActive(ctx, approved.RequesterEmail, approved.CompanyName, affiliationFields(approved, hr))
	if err != nil {
		return nil, c.rollbackApproval(ctx, req, assignment, attempt, err)
	}
	return &ApproveResult{Request: approved, Assignment: assignment, AffiliationCreated: created}, nil
}

// takeUnit decrements stock, telling an empty asset apart from one deleted since it was read.
func (c *Coordinator) takeUnit(ctx context.Context, inv *inventory.Store, assetID uuid.UUID) error {
	ok, err := inv.TryDecrement(ctx, assetID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := inv.Get(ctx, assetID); errors.Is(err, inventory.ErrAssetNotFound) {
		return ErrAssetUnavailable
	}
	return ErrOutOfStock
}

// rollbackApproval undoes an approval whose later step failed: the assignment (if any) is
// discarded, the request goes back to pending and the unit goes back to stock. An assignment
// that is no longer assigned cannot be discarded, so the approval is kept as is. The cause is
// always reported as Internal; compensation errors are logged and joined to it.
func (c *Coordinator) rollbackApproval(ctx context.Context, req *domain.Request, assignment *domain.Assignment, attempt string, cause error) error {
	logger := log.Error().Str("request_id", req.RequestID.String()).Str("asset_id", req.AssetID.String())
	logger.Err(cause).Msg("allocation: approval failed after stock was taken, compensating")

	errs := []error{cause}
	if assignment != nil {
		discarded, err := c.Assignments.Discard(ctx, assignment.AssignmentID)
		switch {
		case err != nil:
			obs.Compensations.WithLabelValues("discard_assignment", obs.OutcomeError).Inc()
			log.Error().Str("assignment_id", assignment.AssignmentID.String()).Err(err).
				Msg("allocation: could not discard assignment of failed approval")
			errs = append(errs, err)
		case !discarded:
			// The assignment already left assigned (returned), so the approval stands and
			// the return owns the stock credit.
			obs.Compensations.WithLabelValues("discard_assignment", obs.OutcomeRejected).Inc()
			log.Warn().Str("assignment_id", assignment.AssignmentID.String()).Str("request_id", req.RequestID.String()).
				Msg("allocation: assignment no longer assigned, keeping request approved")
			return internal("Failed to approve request", cause)
		default:
			obs.Compensations.WithLabelValues("discard_assignment", obs.OutcomeOK).Inc()
		}
	}
	if _, err := c.Requests.TryTransition(ctx, req.RequestID, domain.RequestApproved, domain.RequestPending, ""); err != nil {
		obs.Compensations.WithLabelValues("revert_request", obs.OutcomeError).Inc()
		log.Error().Str("request_id", req.RequestID.String()).Err(err).
			Msg("allocation: could not return request to pending")
		errs = append(errs, err)
	} else {
		obs.Compensations.WithLabelValues("revert_request", obs.OutcomeOK).Inc()
	}
	if err := c.giveBackUnit(ctx, req, attempt); err != nil {
		errs = append(errs, err)
	}
	return internal("Failed to approve request", errors.Join(errs...))
}

// giveBackUnit returns the unit taken by a failed approval. If the increment itself fails
// the credit is recorded in the restock log for the relay and the failure is returned.
func (c *Coordinator) giveBackUnit(ctx context.Context, req *domain.Request, attempt string) error {
	err := c.Inventory.Increment(ctx, req.AssetID)
	switch {
	case err == nil:
		obs.Compensations.WithLabelValues("increment", obs.OutcomeOK).Inc()
		return nil
	case errors.Is(err, inventory.ErrAssetNotFound), errors.Is(err, inventory.ErrAtCapacity):
		obs.Compensations.WithLabelValues("increment", obs.OutcomeRejected).Inc()
		log.Warn().Str("request_id", req.RequestID.String()).Str("asset_id", req.AssetID.String()).
			Err(err).Msg("allocation: undo increment not applied")
		return nil
	}

	obs.Compensations.WithLabelValues("increment", obs.OutcomeError).Inc()
	key := restock.UndoApproveKey(req.RequestID, attempt)
	_, enqErr := c.Restock.Enqueue(ctx, key, req.AssetID, map[string]interface{}{
		"request_id": req.RequestID.String(),
		"cause":      err.Error(),
	})
	if enqErr != nil {
		log.Error().Str("request_id", req.RequestID.String()).Str("asset_id", req.AssetID.String()).
			Str("task_key", key).AnErr("increment_error", err).Err(enqErr).
			Msg("allocation: undo increment failed and could not be recorded, stock is short by one")
		return errors.Join(err, enqErr)
	}
	log.Error().Str("request_id", req.RequestID.String()).Str("asset_id", req.AssetID.String()).
		Str("task_key", key).Err(err).Msg("allocation: undo increment failed, queued for relay")
	return err
}

// Reject closes a pending request without touching stock.
func (c *Coordinator) Reject(ctx context.Context, hr Actor, requestID uuid.UUID) (r *domain.Request, err error) {
	defer func() { record("reject", err) }()
	req, err := c.loadPending(ctx, hr, requestID)
	if err != nil {
		return nil, err
	}
	r, err = c.Requests.TryTransition(ctx, req.RequestID, domain.RequestPending, domain.RequestRejected, hr.Email)
	if err != nil {
		return nil, internal("Failed to reject request", err)
	}
	if r == nil {
		return nil, ErrAlreadyProcessed
	}
	return r, nil
}

// Return closes the employee's assignment and gives the unit back to stock. A second return
// of the same assignment fails with ErrInvalidReturn and credits nothing.
func (c *Coordinator) Return(ctx context.Context, employee Actor, assignmentID uuid.UUID) (a *domain.Assignment, err error) {
	defer func() { record("return", err) }()
	if !employee.can(constants.ReturnAsset) {
		return nil, ErrForbidden
	}
	current, err := c.Assignments.Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, assignments.ErrAssignmentNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, internal("Failed to load assignment", err)
	}
	if current.EmployeeEmail != employee.Email {
		return nil, ErrForbidden
	}
	if current.Status != domain.AssignmentAssigned {
		return nil, ErrInvalidReturn
	}

	ctx = context.WithoutCancel(ctx)
	if !c.Atomic {
		return c.returnLogged(ctx, assignmentID)
	}
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := c.bind(tx)
		returned, txErr := s.asg.TryReturn(ctx, assignmentID)
		if txErr != nil {
			return txErr
		}
		if returned == nil {
			return ErrInvalidReturn
		}
		if txErr := s.inv.Increment(ctx, returned.AssetID); txErr != nil && !creditNotOwed(txErr) {
			return txErr
		}
		a = returned
		return nil
	})
	if err != nil {
		return nil, asAllocationError("Failed to return assignment", err)
	}
	return a, nil
}

// returnLogged closes the assignment, then records the +1 in the restock log and applies
// it. If applying fails the task stays pending and the relay credits it later; the return
// itself has already happened.
func (c *Coordinator) returnLogged(ctx context.Context, assignmentID uuid.UUID) (*domain.Assignment, error) {
	returned, err := c.Assignments.TryReturn(ctx, assignmentID)
	if err != nil {
		return nil, internal("Failed to return assignment", err)
	}
	if returned == nil {
		return nil, ErrInvalidReturn
	}

	key := restock.ReturnKey(returned.AssignmentID)
	if _, err := c.Restock.Enqueue(ctx, key, returned.AssetID, map[string]interface{}{
		"assignment_id": returned.AssignmentID.String(),
		"employee":      returned.EmployeeEmail,
	}); err != nil {
		// Nothing durable records the credit, so apply it directly.
		log.Error().Str("assignment_id", returned.AssignmentID.String()).Err(err).
			Msg("allocation: could not record return credit, incrementing directly")
		if incErr := c.Inventory.Increment(ctx, returned.AssetID); incErr != nil && !creditNotOwed(incErr) {
			log.Error().Str("assignment_id", returned.AssignmentID.String()).
				Str("asset_id", returned.AssetID.String()).Err(incErr).
				Msg("allocation: return credit lost, stock is short by one")
			return nil, internal("Failed to credit returned asset", errors.Join(err, incErr))
		}
		return returned, nil
	}
	if _, err := c.Restock.Apply(ctx, key); err != nil {
		log.Warn().Str("task_key", key).Err(err).Msg("allocation: return credit left for relay")
	}
	return returned, nil
}

// RemoveEmployee deactivates an affiliation in the HR's company. The employee is
// re-affiliated by their next approved request.
func (c *Coordinator) RemoveEmployee(ctx context.Context, hr Actor, affiliationID uuid.UUID) (err error) {
	defer func() { record("remove_employee", err) }()
	if !hr.can(constants.RemoveEmployee) {
		return ErrForbidden
	}
	ok, err := c.Affiliations.Deactivate(ctx, affiliationID, hr.Email)
	if err != nil {
		return internal("Failed to remove employee", err)
	}
	if !ok {
		return ErrEmployeeNotFound
	}
	return nil
}

// creditNotOwed reports increment failures where there is nothing left to give back.
func creditNotOwed(err error) bool {
	if errors.Is(err, inventory.ErrAssetNotFound) || errors.Is(err, inventory.ErrAtCapacity) {
		log.Warn().Err(err).Msg("allocation: return credit not applied")
		return true
	}
	return false
}

func newAssignment(req *domain.Request, asset *domain.Asset) *domain.Assignment {
	return &domain.Assignment{
		RequestID:     req.RequestID,
		AssetID:       asset.AssetID,
		AssetName:     asset.Name,
		AssetImage:    asset.Image,
		AssetType:     asset.Type,
		EmployeeEmail: req.RequesterEmail,
		EmployeeName:  req.RequesterName,
		HREmail:       req.HREmail,
		CompanyName:   req.CompanyName,
		RequestDate:   req.RequestDate,
	}
}

func affiliationFields(req *domain.Request, hr Actor) affiliations.Fields {
	return affiliations.Fields{
		EmployeeName: req.RequesterName,
		HREmail:      req.HREmail,
		CompanyLogo:  hr.CompanyLogo,
	}
}

// asAllocationError keeps typed errors and wraps anything else as Internal.
func asAllocationError(msg string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal(msg, err)
}

func record(op string, err error) {
	outcome := obs.OutcomeOK
	if err != nil {
		switch KindOf(err) {
		case KindConflict:
			outcome = obs.OutcomeConflict
		case KindNotFound:
			outcome = obs.OutcomeNotFound
		case KindForbidden, KindInvalidArgument:
			outcome = obs.OutcomeRejected
		default:
			outcome = obs.OutcomeError
			log.Error().Str("operation", op).Err(err).Msg("allocation: operation failed")
		}
	}
	obs.AllocationOps.WithLabelValues(op, outcome).Inc()
}
