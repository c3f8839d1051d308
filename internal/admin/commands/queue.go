package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casestrainer/casestrainer/internal/kvstore"
	"github.com/casestrainer/casestrainer/internal/queue"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// NewQueueCmd creates the queue command
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Job queue inspection commands",
		Long:  "Inspect jobs persisted in the job store by state",
	}

	cmd.AddCommand(newQueueStatusCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueMetricsCmd())

	return cmd
}

// metricsQueue is implemented by the transports that keep a running
// QueueMetrics (redis, nats). The in-memory driver is refused by initQueue
// before this type assertion is ever reached.
type metricsQueue interface {
	GetMetrics() *queue.QueueMetrics
}

func newQueueStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts by state",
		Long:  "Count queued, running, completed, failed and cancelled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := initStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			states := []models.JobState{
				models.JobQueued, models.JobRunning, models.JobCompleted,
				models.JobFailed, models.JobCancelled,
			}

			jsonOutput, _ := cmd.Flags().GetBool("json")
			counts := make(map[models.JobState]int, len(states))
			for _, state := range states {
				jobs, err := store.ListJobs(ctx, kvstore.JobFilter{State: state, Limit: 0})
				if err != nil {
					return fmt.Errorf("failed to list %s jobs: %w", state, err)
				}
				counts[state] = len(jobs)
			}

			if jsonOutput {
				fmt.Printf(`{"queued": %d, "running": %d, "completed": %d, "failed": %d, "cancelled": %d}`+"\n",
					counts[models.JobQueued], counts[models.JobRunning], counts[models.JobCompleted],
					counts[models.JobFailed], counts[models.JobCancelled])
				return nil
			}

			fmt.Println("Job Queue Status:")
			fmt.Println("=================")
			fmt.Printf("Queued:     %d\n", counts[models.JobQueued])
			fmt.Printf("Running:    %d\n", counts[models.JobRunning])
			fmt.Printf("Completed:  %d\n", counts[models.JobCompleted])
			fmt.Printf("Failed:     %d\n", counts[models.JobFailed])
			fmt.Printf("Cancelled:  %d\n", counts[models.JobCancelled])

			return nil
		},
	}
}

func newQueueListCmd() *cobra.Command {
	var (
		state string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by state",
		Long:  "Display jobs in the job store with an optional state filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := initStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.ListJobs(cmd.Context(), kvstore.JobFilter{
				State: models.JobState(state),
				Limit: limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			fmt.Println("ID                                    State       Progress  Step")
			fmt.Println("------------------------------------  ----------  --------  ----")
			for _, job := range jobs {
				fmt.Printf("%-38s %-11s %-9d %s\n", job.JobID, job.State, job.Progress, job.CurrentStep)
			}
			fmt.Printf("\n(%d jobs)\n", len(jobs))

			return nil
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "Filter by state (queued, running, completed, failed, cancelled)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of jobs to display")

	return cmd
}

func newQueueMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show queue transport metrics",
		Long:  "Report throughput, success rate and process-time percentiles for the redis or nats queue transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			q, err := initQueue(cfg)
			if err != nil {
				return err
			}
			defer q.Close()

			mq, ok := q.(metricsQueue)
			if !ok {
				return fmt.Errorf("queue driver %q does not report metrics", cfg.Queue.Driver)
			}
			summary := mq.GetMetrics().GetSummary()

			jsonOutput, _ := cmd.Flags().GetBool("json")
			if jsonOutput {
				fmt.Printf(`{"total_enqueued": %d, "total_dequeued": %d, "total_completed": %d, "total_failed": %d, "total_retried": %d, "success_rate": %.2f, "avg_process_time": %q, "p50_process_time": %q, "p95_process_time": %q, "p99_process_time": %q}`+"\n",
					summary.TotalEnqueued, summary.TotalDequeued, summary.TotalCompleted, summary.TotalFailed,
					summary.TotalRetried, summary.SuccessRate, summary.AvgProcessTime, summary.P50ProcessTime,
					summary.P95ProcessTime, summary.P99ProcessTime)
				return nil
			}

			fmt.Println("Queue Transport Metrics:")
			fmt.Println("========================")
			fmt.Printf("Enqueued:    %d\n", summary.TotalEnqueued)
			fmt.Printf("Dequeued:    %d\n", summary.TotalDequeued)
			fmt.Printf("Completed:   %d\n", summary.TotalCompleted)
			fmt.Printf("Failed:      %d\n", summary.TotalFailed)
			fmt.Printf("Retried:     %d\n", summary.TotalRetried)
			fmt.Printf("Success:     %.2f%%\n", summary.SuccessRate)
			fmt.Printf("Process time avg/p50/p95/p99: %s / %s / %s / %s\n",
				summary.AvgProcessTime, summary.P50ProcessTime, summary.P95ProcessTime, summary.P99ProcessTime)

			return nil
		},
	}
}
