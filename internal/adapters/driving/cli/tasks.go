package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and process the task queue",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksGetCmd = &cobra.Command{
	Use:   "get [task-id]",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksGet,
}

var tasksPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List enqueued tasks in execution order",
	Args:  cobra.NoArgs,
	RunE:  runTasksPending,
}

var tasksClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the next enqueued task",
	Long:  `Moves the oldest enqueued task to processing so an external worker can apply it.`,
	Args:  cobra.NoArgs,
	RunE:  runTasksClaim,
}

var tasksFinishCmd = &cobra.Command{
	Use:   "finish [task-id]",
	Short: "Record the outcome of a claimed task",
	Long:  `Marks a processing task succeeded, or failed when --error is given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksFinish,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute queued tasks",
	Long:  `Claims and executes queued tasks in order until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runTasksRun,
}

var (
	taskIndexes  []string
	taskStatuses []string
	taskKinds    []string
	taskLimit    int
	pendingLimit int
	taskFrom     int64
	taskError    string
	taskRunOnce  bool
	tasksJSON    bool
)

func init() {
	for _, c := range []*cobra.Command{tasksListCmd, tasksGetCmd} {
		c.Flags().StringSliceVar(&taskIndexes, "index", nil, "only tasks of these indexes")
		c.Flags().StringSliceVar(&taskStatuses, "status", nil, "only tasks with these statuses")
		c.Flags().StringSliceVar(&taskKinds, "kind", nil, "only tasks of these kinds")
	}
	for _, c := range []*cobra.Command{tasksListCmd, tasksGetCmd, tasksPendingCmd, tasksClaimCmd} {
		c.Flags().BoolVar(&tasksJSON, "json", false, "output as JSON")
	}
	tasksListCmd.Flags().IntVarP(&taskLimit, "limit", "n", 0, "maximum number of tasks (default from config)")
	tasksListCmd.Flags().Int64Var(&taskFrom, "from", 0, "list tasks with an id at most this value")
	tasksPendingCmd.Flags().IntVarP(&pendingLimit, "limit", "n", 20, "maximum number of tasks")
	tasksFinishCmd.Flags().StringVar(&taskError, "error", "", "failure reason; marks the task failed")
	tasksRunCmd.Flags().BoolVar(&taskRunOnce, "once", false, "execute at most one task and exit")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksGetCmd)
	tasksCmd.AddCommand(tasksPendingCmd)
	tasksCmd.AddCommand(tasksClaimCmd)
	tasksCmd.AddCommand(tasksFinishCmd)
	tasksCmd.AddCommand(tasksRunCmd)
	rootCmd.AddCommand(tasksCmd)
}

func taskFilter() (*domain.TaskFilter, error) {
	if len(taskIndexes) == 0 && len(taskStatuses) == 0 && len(taskKinds) == 0 {
		return nil, nil
	}
	filter := &domain.TaskFilter{Indexes: taskIndexes}
	for _, s := range taskStatuses {
		status := domain.TaskStatus(s)
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown task status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, k := range taskKinds {
		kind := domain.TaskKind(k)
		if !kind.IsValid() {
			return nil, fmt.Errorf("unknown task kind %q", k)
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	return filter, nil
}

func parseTaskID(s string) (domain.TaskID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return domain.TaskID(id), nil
}

func printTasks(cmd *cobra.Command, tasks []domain.Task) error {
	if tasksJSON {
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return printJSON(cmd, tasks)
	}
	if len(tasks) == 0 {
		cmd.Println("No tasks found.")
		return nil
	}
	for i := range tasks {
		printTask(cmd, &tasks[i])
	}
	cmd.Printf("Total: %d tasks\n", len(tasks))
	return nil
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	filter, err := taskFilter()
	if err != nil {
		return err
	}
	var from *domain.TaskID
	if taskFrom > 0 {
		id := domain.TaskID(taskFrom)
		from = &id
	}

	tasks, err := updateService.ListTasks(cmd.Context(), filter, taskLimit, from)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return printTasks(cmd, tasks)
}

func runTasksGet(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	filter, err := taskFilter()
	if err != nil {
		return err
	}

	task, err := updateService.GetTask(cmd.Context(), id, filter)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if tasksJSON {
		return printJSON(cmd, task)
	}
	printTask(cmd, task)
	return nil
}

func runTasksPending(cmd *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	tasks, err := dispatcher.Pending(cmd.Context(), pendingLimit)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}
	return printTasks(cmd, tasks)
}

func runTasksClaim(cmd *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	task, err := dispatcher.Claim(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to claim task: %w", err)
	}
	if task == nil {
		cmd.Println("No enqueued tasks.")
		return nil
	}
	if tasksJSON {
		return printJSON(cmd, task)
	}
	printTask(cmd, task)
	return nil
}

func runTasksFinish(cmd *cobra.Command, args []string) error {
	if dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	result := domain.TaskResult{Succeeded: taskError == "", Error: taskError}

	task, err := dispatcher.Finish(cmd.Context(), id, result)
	if err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}
	printTask(cmd, task)
	return nil
}

func runTasksRun(cmd *cobra.Command, _ []string) error {
	if dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	if taskRunOnce {
		ran, err := dispatcher.RunOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to run task: %w", err)
		}
		if !ran {
			cmd.Println("No enqueued tasks.")
			return nil
		}
		cmd.Println("Executed one task.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Executing tasks, press Ctrl+C to stop.")
	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("dispatcher failed: %w", err)
	}
	return nil
}
