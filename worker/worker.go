// Copyright 2025 Nguyen Nhat Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/ngnhng/taskhost/activity"
	"github.com/ngnhng/taskhost/api"
	"github.com/ngnhng/taskhost/api/serde"
	"github.com/ngnhng/taskhost/internal/natz"
)

// Options configures a Worker. Zero values select the defaults: JSON
// serde, the default classifier, slog.Default, and serialized-cause
// propagation for tasks that do not carry a mode of their own.
type Options struct {
	Serde      serde.BinarySerde
	Classifier activity.Classifier
	Logger     *slog.Logger

	// Propagation applies to tasks whose own mode is empty.
	Propagation api.PropagationMode
}

// Worker hosts a set of named activities and runs them against the
// activity task stream.
type Worker struct {
	id   string
	conn *natz.Conn

	serde       serde.BinarySerde
	classifier  activity.Classifier
	logger      *slog.Logger
	propagation api.PropagationMode

	registry *hashMapRegistry
}

// New creates a worker bound to an established NATS connection.
func New(conn *natz.Conn, opts *Options) (*Worker, error) {
	if conn == nil {
		return nil, fmt.Errorf("worker: nil connection provided")
	}
	if opts == nil {
		opts = &Options{}
	}

	w := &Worker{
		id:          uuid.Must(uuid.NewV7()).String(),
		conn:        conn,
		serde:       opts.Serde,
		classifier:  opts.Classifier,
		logger:      opts.Logger,
		propagation: opts.Propagation.OrDefault(),
		registry:    newRegistry(),
	}
	if w.serde == nil {
		w.serde = serde.Default()
	}
	if w.classifier == nil {
		w.classifier = activity.DefaultClassifier()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("worker_id", w.id)

	return w, nil
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string { return w.id }

// Register adds a named activity to this worker's registry. Names must be
// unique per worker and registration must finish before Run is called.
func (w *Worker) Register(name string, act activity.Activity) error {
	if err := w.registry.set(name, act); err != nil {
		return &RegistrationError{ActivityName: name, Cause: err}
	}
	w.logger.Debug("registered activity", "activity", name)
	return nil
}

// RegisterFunc wraps fn in an adapter and registers it under name. An
// empty name derives the registration name from the function symbol via
// activity.Name.
func RegisterFunc[I, O any](w *Worker, name string, fn func(context.Context, I) (O, error), opts ...activity.Option) error {
	if name == "" {
		derived, err := activity.Name(fn)
		if err != nil {
			return &RegistrationError{ActivityName: name, Cause: err}
		}
		name = derived
	}
	opts = append([]activity.Option{
		activity.WithSerde(w.serde),
		activity.WithClassifier(w.classifier),
	}, opts...)
	return w.Register(name, activity.New(fn, opts...))
}

// taskConsumer is the slice of jetstream.Consumer the consume loop needs.
type taskConsumer interface {
	Consume(handler jetstream.MessageHandler, opts ...jetstream.PullConsumeOpt) (jetstream.ConsumeContext, error)
}

// Run provisions the task and history streams, then consumes activity
// tasks until ctx is cancelled or a fatal condition halts the worker.
// Each task runs on its own goroutine.
func (w *Worker) Run(ctx context.Context) error {
	if w.registry.size() == 0 {
		return ErrNoActivities
	}

	consumer, err := w.provision(ctx)
	if err != nil {
		return err
	}
	return w.consume(ctx, consumer)
}

func (w *Worker) consume(ctx context.Context, consumer taskConsumer) error {
	g, gctx := errgroup.WithContext(ctx)

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		g.Go(func() error {
			return w.handleMessage(gctx, msg)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to start task consumer: %w", err)
	}

	w.logger.Info("worker started",
		"stream", api.ActivityTasksStream,
		"consumer", api.ActivityTaskWorkerConsumer,
		"activities", w.registry.size(),
	)

	// gctx closes on cancellation or on the first fatal task error.
	<-gctx.Done()
	cc.Stop()

	// Stop is asynchronous: a callback may still be dispatching a task.
	// Closed fires after the last callback has returned, so every task
	// goroutine is accounted for before Wait.
	<-cc.Closed()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	w.logger.Info("worker stopped")
	return nil
}

func (w *Worker) provision(ctx context.Context) (jetstream.Consumer, error) {
	_, err := w.conn.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      api.ActivityTasksStream,
		Subjects:  []string{api.ActivityTasksFilterSubjectPattern},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure task stream: %w", err)
	}

	_, err = w.conn.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     api.HistoryStream,
		Subjects: []string{api.HistoryFilterSubjectPattern},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure history stream: %w", err)
	}

	consumer, err := w.conn.EnsureConsumer(ctx, api.ActivityTasksStream, jetstream.ConsumerConfig{
		Name:          api.ActivityTaskWorkerConsumer,
		Durable:       api.ActivityTaskWorkerConsumer,
		FilterSubject: api.ActivityTasksFilterSubjectPattern,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure task consumer: %w", err)
	}
	return consumer, nil
}

// handleMessage runs one task end to end: decode, invoke, publish the
// outcome, settle the message. Only fatal conditions return an error.
func (w *Worker) handleMessage(ctx context.Context, msg jetstream.Msg) error {
	var task api.ActivityTask
	if err := w.serde.DeserializeBinary(msg.Data(), &task); err != nil {
		// A task that cannot be decoded will not decode on redelivery
		// either.
		w.logger.Error("dropping undecodable task", "subject", msg.Subject(), "error", err)
		w.settle(msg, termTask)
		return nil
	}

	log := w.logger.With(
		"activity", task.ActivityName,
		"workflow_id", task.WorkflowID,
		"attempt", task.Attempt,
	)

	act, err := w.registry.get(task.ActivityName)
	if err != nil {
		// Another worker on the shared consumer may host this activity.
		log.Warn("task names an activity this worker does not host")
		w.settle(msg, nakTask)
		return nil
	}

	actx := activity.NewContext(ctx)
	actx.ActivityName = task.ActivityName
	actx.WorkflowID = task.WorkflowID
	actx.InvocationID = uuid.Must(uuid.NewV7()).String()
	actx.Attempt = task.Attempt
	actx.Propagation = task.Propagation
	if actx.Propagation == "" {
		actx.Propagation = w.propagation
	}

	result, invokeErr := act.Invoke(actx, task.Input)
	out := w.resolveOutcome(&task, result, invokeErr)

	if out.event != nil {
		if err := w.publishEvent(ctx, &task, actx.InvocationID, out.event); err != nil {
			log.Error("failed to publish result, requesting redelivery", "error", err)
			w.settle(msg, nakTask)
			return nil
		}
	}

	log.Debug("task settled",
		"invocation_id", actx.InvocationID,
		"disposition", out.disposition.String(),
	)
	w.settle(msg, out.disposition)
	return out.haltErr
}

func (w *Worker) publishEvent(ctx context.Context, task *api.ActivityTask, invocationID string, event api.ActivityEvent) error {
	data, err := w.encodeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.EventName(), err)
	}

	subject := fmt.Sprintf(api.HistoryPublishSubjectPattern, task.WorkflowID)
	_, err = w.conn.PublishJS(ctx, subject, data, jetstream.WithMsgID(invocationID))
	return err
}

func (w *Worker) settle(msg jetstream.Msg, d disposition) {
	var err error
	switch d {
	case nakTask:
		err = msg.Nak()
	case termTask:
		err = msg.Term()
	default:
		err = msg.Ack()
	}
	if err != nil {
		// The server redelivers unsettled messages after ack-wait, so a
		// failed settlement is survivable.
		w.logger.Warn("failed to settle task message",
			"subject", msg.Subject(), "disposition", d.String(), "error", err)
	}
}
