package scheduler

import (
	"fmt"
	"time"
)

func (s *Scheduler) loadJobs() ([]Job, error) {
	rows, err := s.db.Query(`
		SELECT job_id, kind, plan_name, location, trigger_time, time_zone, created_at
		FROM job
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		var kind string
		var createdAt int64
		if err := rows.Scan(&job.ID, &kind, &job.PlanName, &job.Location,
			&job.TriggerTime, &job.TimeZone, &createdAt); err != nil {
			return nil, err
		}
		job.Kind = Kind(kind)
		job.CreatedAt = time.Unix(createdAt, 0)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Scheduler) saveJob(job Job) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO job (job_id, kind, plan_name, location, trigger_time, time_zone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, string(job.Kind), job.PlanName, job.Location, job.TriggerTime, job.TimeZone, job.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Scheduler) deleteJob(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM job WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	return nil
}

func (s *Scheduler) recordCompletion(jobID string, completedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO job_run (job_id, completed_at) VALUES (?, ?)
	`, jobID, completedAt.Unix())
	return err
}

func (s *Scheduler) lastCompletion(jobID string) (time.Time, error) {
	var completedAt int64
	err := s.db.QueryRow(
		`SELECT completed_at FROM job_run WHERE job_id = ?`, jobID).Scan(&completedAt)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(completedAt, 0), nil
}
