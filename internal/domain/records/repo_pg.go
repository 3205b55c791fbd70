package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omr/omr/internal/domain/record"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordCols = `id, patient_no, status, version, visit_time, dept_code, doc_code,
	submitted_at, created_at, updated_at, base_info, medication_summary, fee_summary, prefill_snapshot`

func (r *repoPG) GetByPatient(ctx context.Context, patientNo string) (*StoredRecord, error) {
	rec := &StoredRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM omr_record WHERE patient_no = $1`, patientNo,
	).Scan(
		&rec.ID, &rec.PatientNo, &rec.Status, &rec.Version, &rec.VisitTime,
		&rec.DeptCode, &rec.DocCode, &rec.SubmittedAt, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.BaseInfo, &rec.Medication, &rec.Fees, &rec.PrefillSnapshot,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if err := r.loadGroups(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *repoPG) loadGroups(ctx context.Context, rec *StoredRecord) error {
	rows, err := r.pool.Query(ctx,
		`SELECT diag_type, seq_no, diag_name, COALESCE(diag_code, '')
		 FROM omr_diagnosis WHERE record_id = $1 ORDER BY diag_type, seq_no`, rec.ID)
	if err != nil {
		return fmt.Errorf("load diagnoses: %w", err)
	}
	defer rows.Close()
	byType := make(map[record.DiagType][]record.DiagnosisRow)
	for rows.Next() {
		var t record.DiagType
		var row record.DiagnosisRow
		if err := rows.Scan(&t, &row.SeqNo, &row.DiagName, &row.DiagCode); err != nil {
			return fmt.Errorf("scan diagnosis: %w", err)
		}
		byType[t] = append(byType[t], row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate diagnoses: %w", err)
	}
	rows.Close()
	rec.Diagnoses = nil
	for _, t := range record.DiagTypes {
		for _, row := range byType[t] {
			rec.Diagnoses = append(rec.Diagnoses, record.DiagnosisEntry{DiagType: t, DiagnosisRow: row})
		}
	}

	opRows, err := r.pool.Query(ctx,
		`SELECT seq_no, op_name, op_code, op_times, op_days
		 FROM omr_tcm_operation WHERE record_id = $1 ORDER BY seq_no`, rec.ID)
	if err != nil {
		return fmt.Errorf("load tcm operations: %w", err)
	}
	defer opRows.Close()
	rec.TcmOperations = nil
	for opRows.Next() {
		var row record.TcmOperationRow
		if err := opRows.Scan(&row.SeqNo, &row.OpName, &row.OpCode, &row.OpTimes, &row.OpDays); err != nil {
			return fmt.Errorf("scan tcm operation: %w", err)
		}
		rec.TcmOperations = append(rec.TcmOperations, row)
	}
	if err := opRows.Err(); err != nil {
		return fmt.Errorf("iterate tcm operations: %w", err)
	}

	sgRows, err := r.pool.Query(ctx,
		`SELECT seq_no, op_name, op_code, op_time, surgery_level, operator_name, anesthesia_method, anesthesia_doctor
		 FROM omr_surgery WHERE record_id = $1 ORDER BY seq_no`, rec.ID)
	if err != nil {
		return fmt.Errorf("load surgeries: %w", err)
	}
	defer sgRows.Close()
	rec.Surgeries = nil
	for sgRows.Next() {
		var row record.SurgeryRow
		if err := sgRows.Scan(&row.SeqNo, &row.OpName, &row.OpCode, &row.OpTime, &row.SurgeryLevel,
			&row.OperatorName, &row.AnesthesiaMethod, &row.AnesthesiaDoctor); err != nil {
			return fmt.Errorf("scan surgery: %w", err)
		}
		rec.Surgeries = append(rec.Surgeries, row)
	}
	if err := sgRows.Err(); err != nil {
		return fmt.Errorf("iterate surgeries: %w", err)
	}

	herbRows, err := r.pool.Query(ctx,
		`SELECT seq_no, herb_type, route_code, route_name, dose_count
		 FROM omr_herb_detail WHERE record_id = $1 ORDER BY seq_no`, rec.ID)
	if err != nil {
		return fmt.Errorf("load herb details: %w", err)
	}
	defer herbRows.Close()
	rec.HerbDetails = nil
	for herbRows.Next() {
		var row record.HerbDetailRow
		if err := herbRows.Scan(&row.SeqNo, &row.HerbType, &row.RouteCode, &row.RouteName, &row.DoseCount); err != nil {
			return fmt.Errorf("scan herb detail: %w", err)
		}
		rec.HerbDetails = append(rec.HerbDetails, row)
	}
	return herbRows.Err()
}

func (r *repoPG) Create(ctx context.Context, rec *StoredRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec.Version = 1
	err = tx.QueryRow(ctx, `
		INSERT INTO omr_record (
			patient_no, status, version, visit_time, dept_code, doc_code, submitted_at,
			base_info, medication_summary, fee_summary, prefill_snapshot
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at`,
		rec.PatientNo, rec.Status, rec.Version, rec.VisitTime, rec.DeptCode, rec.DocCode,
		rec.SubmittedAt, rec.BaseInfo, rec.Medication, rec.Fees, rec.PrefillSnapshot,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	if err := r.writeGroups(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) Update(ctx context.Context, rec *StoredRecord, expectedVersion int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE omr_record SET
			status = $1, version = version + 1, submitted_at = $2,
			base_info = $3, medication_summary = $4, fee_summary = $5,
			prefill_snapshot = $6, updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING version, updated_at`,
		rec.Status, rec.SubmittedAt, rec.BaseInfo, rec.Medication, rec.Fees,
		rec.PrefillSnapshot, rec.ID, expectedVersion,
	).Scan(&rec.Version, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	for _, table := range []string{"omr_diagnosis", "omr_tcm_operation", "omr_surgery", "omr_herb_detail"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE record_id = $1`, rec.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := r.writeGroups(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) writeGroups(ctx context.Context, tx pgx.Tx, rec *StoredRecord) error {
	for _, d := range rec.Diagnoses {
		var code *string
		if d.DiagCode != "" {
			c := d.DiagCode
			code = &c
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO omr_diagnosis (record_id, diag_type, seq_no, diag_name, diag_code)
			VALUES ($1,$2,$3,$4,$5)`,
			rec.ID, d.DiagType, d.SeqNo, d.DiagName, code)
		if err != nil {
			return fmt.Errorf("insert diagnosis: %w", err)
		}
	}
	for _, op := range rec.TcmOperations {
		_, err := tx.Exec(ctx, `
			INSERT INTO omr_tcm_operation (record_id, seq_no, op_name, op_code, op_times, op_days)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			rec.ID, op.SeqNo, op.OpName, op.OpCode, op.OpTimes, op.OpDays)
		if err != nil {
			return fmt.Errorf("insert tcm operation: %w", err)
		}
	}
	for _, sg := range rec.Surgeries {
		_, err := tx.Exec(ctx, `
			INSERT INTO omr_surgery (record_id, seq_no, op_name, op_code, op_time, surgery_level,
				operator_name, anesthesia_method, anesthesia_doctor)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			rec.ID, sg.SeqNo, sg.OpName, sg.OpCode, sg.OpTime, sg.SurgeryLevel,
			sg.OperatorName, sg.AnesthesiaMethod, sg.AnesthesiaDoctor)
		if err != nil {
			return fmt.Errorf("insert surgery: %w", err)
		}
	}
	for _, h := range rec.HerbDetails {
		_, err := tx.Exec(ctx, `
			INSERT INTO omr_herb_detail (record_id, seq_no, herb_type, route_code, route_name, dose_count)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			rec.ID, h.SeqNo, h.HerbType, h.RouteCode, h.RouteName, h.DoseCount)
		if err != nil {
			return fmt.Errorf("insert herb detail: %w", err)
		}
	}
	return nil
}

func (r *repoPG) DeleteByPatient(ctx context.Context, patientNo string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM omr_record WHERE patient_no = $1`, patientNo)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
