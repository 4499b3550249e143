package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) outboxProcessor() *event.OutboxProcessor {
	bus := event.NewInMemoryEventBus(a.logger)
	audit := event.NewLedgerAuditHandler(a.logger)
	bus.Subscribe(event.NewIdempotentHandler(audit, a.backends.Idempotency, a.cfg.Ledger.IdempotencyTTL, a.logger))

	return event.NewOutboxProcessor(
		event.NewGormOutboxRepository(a.db),
		bus,
		a.serializer,
		event.ProcessorConfigFrom(a.cfg.Event),
		a.logger,
	)
}

func newRelayCmd(opts *globalOptions) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver committed ledger events from the outbox",
		Long: `Relay outbox entries to the event handlers. Each event is handled at most
once per idempotency window; failed deliveries are retried with backoff until
their retry budget is spent. Runs until interrupted unless --once is given.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				processor := a.outboxProcessor()
				if once {
					result, err := processor.ProcessOnce(ctx)
					if err != nil {
						return fmt.Errorf("failed to relay outbox: %w", err)
					}
					if opts.json {
						return opts.printer(cmd).emitJSON(result)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "sent %d, failed %d, dead %d\n", result.Sent, result.Failed, result.Dead)
					return nil
				}

				if err := processor.Start(ctx); err != nil {
					return err
				}
				a.logger.Info("outbox relay running", zap.Duration("poll_interval", a.cfg.Event.PollInterval))
				<-ctx.Done()

				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := processor.Stop(stopCtx); err != nil {
					return err
				}
				if errors.Is(ctx.Err(), context.Canceled) {
					return nil
				}
				return ctx.Err()
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "relay one batch and exit")
	return cmd
}
