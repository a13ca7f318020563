// Package session wires one page: its map surface, route cache, controls
// and toggle coordinator. A session lives as long as the page's connection.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"routemap/internal/domain"
	"routemap/internal/hub"
	"routemap/internal/panel"
	"routemap/internal/store"
	"routemap/internal/toggle"
)

const (
	TypeSnapshot = "snapshot"
	TypeControl  = "control"
	TypeMaster   = "master"
	TypeBatch    = "batch"
	TypeError    = "error"
	TypePong     = "pong"
)

type SnapshotPayload struct {
	Routes   []domain.Route       `json:"routes"`
	Controls []panel.ControlState `json:"controls"`
	Master   panel.MasterStatus   `json:"master"`
}

type ErrorPayload struct {
	RelationID string `json:"relationId,omitempty"`
	Message    string `json:"message"`
}

type BatchPayload struct {
	Target    bool               `json:"target"`
	Processed int                `json:"processed"`
	Failed    []string           `json:"failed,omitempty"`
	Master    panel.MasterStatus `json:"master"`
}

type Session struct {
	ID     string
	client *hub.Client
	routes []domain.Route

	Store       *store.LayerStore
	Panel       *panel.Panel
	Coordinator *toggle.Coordinator

	wg     sync.WaitGroup
	logger *slog.Logger
}

func New(client *hub.Client, manifest *domain.Manifest, resolver store.Resolver, logger *slog.Logger) *Session {
	s := &Session{
		ID:     client.ID,
		client: client,
		routes: manifest.Routes,
		logger: logger.With("component", "session", "session_id", client.ID),
	}
	s.Store = store.NewLayerStore(resolver, client)
	s.Panel = panel.New(manifest.Routes, s)
	s.Coordinator = toggle.New(s.Store, s.Panel, s, s.logger)
	return s
}

func (s *Session) Snapshot() SnapshotPayload {
	return SnapshotPayload{
		Routes:   s.routes,
		Controls: s.Panel.Snapshot(),
		Master:   s.Panel.Master(),
	}
}

func (s *Session) SendSnapshot() error {
	return s.client.Emit(TypeSnapshot, s.Snapshot())
}

func (s *Session) Pong() {
	s.client.Emit(TypePong, nil)
}

// Toggle runs a single-route toggle in the background so it can interleave
// with a running batch.
func (s *Session) Toggle(ctx context.Context, relationID string, checked bool) {
	s.goRun(func() {
		_, err := s.Coordinator.ToggleRoute(ctx, relationID, checked)
		if err != nil {
			s.logger.Debug("toggle rejected", "relation_id", relationID, "error", err)
			s.reportRejected(relationID, err)
		}
	})
}

func (s *Session) ToggleAll(ctx context.Context, checked bool) {
	s.goRun(func() {
		result, err := s.Coordinator.ToggleAll(ctx, checked)
		if err != nil {
			s.logger.Debug("toggle all rejected", "error", err)
			s.reportRejected("", err)
			return
		}

		payload := BatchPayload{
			Target:    result.Target,
			Processed: len(result.Outcomes),
			Master:    result.Master,
		}
		for _, o := range result.Failed() {
			payload.Failed = append(payload.Failed, o.RelationID)
		}
		s.client.Emit(TypeBatch, payload)
	})
}

// Wait blocks until every background toggle has returned
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) reportRejected(relationID string, err error) {
	if errors.Is(err, hub.ErrClientClosed) {
		return
	}
	s.client.Emit(TypeError, ErrorPayload{RelationID: relationID, Message: err.Error()})
}

func (s *Session) ControlChanged(state panel.ControlState) {
	s.client.Emit(TypeControl, state)
}

func (s *Session) MasterChanged(status panel.MasterStatus) {
	s.client.Emit(TypeMaster, status)
}

func (s *Session) RouteFailed(relationID string, err error) {
	s.client.Emit(TypeError, ErrorPayload{RelationID: relationID, Message: err.Error()})
}
