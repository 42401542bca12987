package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/chbs/lead-outreach/internal/core"
	"github.com/chbs/lead-outreach/internal/di"
	"github.com/chbs/lead-outreach/internal/factory"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	svc *core.OutreachService,
	backend factory.Backend,
) error {
	defer logger.Sync()

	// Ctrl-C aborts a bulk run between items; the partial result still prints
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := core.Sender{
		Name:    flags.SenderName,
		Company: flags.SenderCompany,
		Phone:   flags.SenderPhone,
	}

	defer func() {
		if closer, ok := backend.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close store", zap.Error(err))
			}
		}
	}()

	switch {
	case flags.ListFollowUps:
		return listFollowUps(ctx, svc)
	case flags.SendFollowUps:
		result, err := svc.SendFollowUps(ctx, sender, printProgress)
		printResult(result)
		if errors.Is(err, core.ErrCancelled) {
			return nil
		}
		return err
	default:
		return runImport(ctx, flags, svc, sender)
	}
}

// runImport reads the CSV input and previews, imports, or sends it
func runImport(ctx context.Context, flags *di.CLIFlags, svc *core.OutreachService, sender core.Sender) error {
	rawText, err := readInput(flags.InputFile)
	if err != nil {
		return err
	}

	if flags.Preview {
		records, rejected := svc.ParseImport(rawText)
		fmt.Printf("\n=== Import Preview ===\n")
		fmt.Printf("Accepted: %d\n", len(records))
		fmt.Printf("Rejected: %d\n", rejected)
		for _, record := range records {
			fmt.Printf("  %-30s %-30s %-16s %s\n",
				record.DisplayName(), record.Email, record.Phone, record.LeadType)
		}
		return nil
	}

	result, err := svc.ImportAndSend(ctx, rawText, sender, flags.Persist, flags.Send, printProgress)
	printResult(result)
	if errors.Is(err, core.ErrCancelled) {
		return nil
	}
	return err
}

// listFollowUps prints the reminder queue, longest-waiting first
func listFollowUps(ctx context.Context, svc *core.OutreachService) error {
	candidates, err := svc.FollowUps(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n=== Follow-ups Due ===\n")
	if len(candidates) == 0 {
		fmt.Println("None")
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("  %-30s %-30s sends=%d last=%s\n",
			c.Contact.DisplayName(), c.Contact.Email, c.EmailCount,
			c.LastSentAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// readInput reads the CSV text from a file or stdin
func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

func printProgress(sent, total int) {
	fmt.Printf("\rSending %d/%d...", sent, total)
	if sent == total {
		fmt.Println()
	}
}

func printResult(result *core.DispatchResult) {
	if result == nil {
		return
	}
	fmt.Printf("\n=== Dispatch Result ===\n")
	fmt.Printf("Attempted: %d\n", result.Attempted)
	fmt.Printf("Sent:      %d\n", result.Sent)
	fmt.Printf("Failed:    %d\n", result.Failed)
	if result.Cancelled {
		fmt.Println("Run cancelled; counts above cover completed attempts")
	}
	if len(result.Errors) > 0 {
		indexes := make([]int, 0, len(result.Errors))
		for i := range result.Errors {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		fmt.Println("Errors:")
		for _, i := range indexes {
			fmt.Printf("  row %d: %s\n", i, result.Errors[i])
		}
	}
}
