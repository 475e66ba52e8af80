package httpx

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/teamtempo/tempo/internal/dashboard"
	"github.com/teamtempo/tempo/internal/ws"
)

// Frame types exchanged on /ws/dashboard.
const (
	frameSelectTeam      = "select_team"
	frameSelectProject   = "select_project"
	frameSelectIteration = "select_iteration"
	frameReloadTeams     = "reload_teams"
	frameReloadProject   = "reload_project"
	frameView            = "view"
	frameError           = "error"
)

type dashboardCommand struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type viewFrame struct {
	Type    string         `json:"type"`
	Version uint64         `json:"version"`
	View    dashboard.View `json:"view"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// dashboardSubscriber turns hub notices into team reloads. Notices that
// arrive while a reload is queued are merged into it.
type dashboardSubscriber struct {
	client *ws.Client
	reload chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newDashboardSubscriber(client *ws.Client) *dashboardSubscriber {
	return &dashboardSubscriber{
		client: client,
		reload: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (d *dashboardSubscriber) Send(ws.Notice) error {
	select {
	case d.reload <- struct{}{}:
	default:
	}
	return nil
}

// Close ends the subscription and the connection behind it.
func (d *dashboardSubscriber) Close() {
	d.once.Do(func() {
		close(d.done)
		d.client.Close()
	})
}

func (r *Router) handleDashboardWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("dashboard upgrade failed", "error", err, "user_id", info.UserID)
		return
	}
	logger := r.logger.With("user_id", info.UserID)
	client := ws.NewClient(conn, logger)
	sub := newDashboardSubscriber(client)

	src := serviceSource{userID: info.UserID, team: r.team, project: r.project}
	session := dashboard.NewSession(req.Context(), src,
		dashboard.WithLogger(logger),
		dashboard.WithFetchTimeout(r.fetchTimeout),
		dashboard.WithListener(func(u dashboard.Update) {
			if err := client.WriteJSON(viewFrame{Type: frameView, Version: u.Version, View: u.View}); err == nil {
				r.recordDashboardFrame("out", frameView)
			}
		}),
	)

	r.trackDashboardSession(1)
	logger.Info("dashboard session opened")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-sub.reload:
				session.LoadTeams()
			case <-sub.done:
				return
			}
		}
	}()

	if r.hub != nil {
		r.hub.Register(info.UserID, sub)
	}
	defer func() {
		if r.hub != nil {
			r.hub.Unregister(info.UserID, sub)
		}
		session.Close()
		sub.Close()
		wg.Wait()
		r.trackDashboardSession(-1)
		logger.Info("dashboard session closed")
	}()

	session.LoadTeams()
	for {
		payload, err := client.Read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("dashboard read ended", "error", err)
			}
			return
		}
		var cmd dashboardCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			r.sendDashboardError(client, "invalid frame")
			continue
		}
		kind := cmd.Type
		switch cmd.Type {
		case frameSelectTeam:
			session.SelectTeam(cmd.ID)
		case frameSelectProject:
			session.SelectProject(cmd.ID)
		case frameSelectIteration:
			session.SelectIteration(cmd.ID)
		case frameReloadTeams:
			session.LoadTeams()
		case frameReloadProject:
			session.LoadProjectDetail(cmd.ID)
		default:
			kind = "unknown"
			r.sendDashboardError(client, "unknown frame type "+cmd.Type)
		}
		r.recordDashboardFrame("in", kind)
	}
}

func (r *Router) sendDashboardError(client *ws.Client, msg string) {
	if err := client.WriteJSON(errorFrame{Type: frameError, Error: msg}); err == nil {
		r.recordDashboardFrame("out", frameError)
	}
}
