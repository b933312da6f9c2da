package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"streamgrab/internal/api"
	"streamgrab/internal/daemon"
	"streamgrab/internal/logging"
	"streamgrab/internal/queue"
)

// serviceName prefixes every RPC method ("Streamgrab.QueueList").
const serviceName = "Streamgrab"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{
		daemon: d,
		queue:  api.NewQueueService(d.Queue()),
		logger: logging.NewComponentLogger(logger, "ipc"),
		ctx:    serverCtx,
	}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Connected clients are
// served until they hang up.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	queue  *api.QueueService
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).API()
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	item, err := s.daemon.Enqueue(s.ctx, req)
	if err != nil {
		return err
	}
	resp.Item = api.FromQueueItem(item)
	s.logger.Info("download queued via IPC",
		logging.String(logging.FieldEventType, "queue_add"),
		logging.String(logging.FieldItemID, item.ID),
		logging.String("url", item.URL))
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	resp.Items = s.queue.List(api.ParseStatuses(req.Statuses)...)
	return nil
}

func (s *service) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	item, err := s.queue.Describe(req.ID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("queue item %q not found", req.ID)
	}
	resp.Item = *item
	return nil
}

func (s *service) QueueStart(req QueueActionRequest, resp *QueueActionResponse) error {
	return s.batch("start", req.IDs, s.daemon.Queue().Start, resp)
}

func (s *service) QueuePause(req QueueActionRequest, resp *QueueActionResponse) error {
	q := s.daemon.Queue()
	return s.batch("pause", req.IDs, api.BoolAction(q, q.Pause), resp)
}

func (s *service) QueueResume(req QueueActionRequest, resp *QueueActionResponse) error {
	q := s.daemon.Queue()
	return s.batch("resume", req.IDs, api.BoolAction(q, q.Resume), resp)
}

func (s *service) QueueCancel(req QueueActionRequest, resp *QueueActionResponse) error {
	q := s.daemon.Queue()
	return s.batch("cancel", req.IDs, api.CancelAction(q, q.Cancel), resp)
}

func (s *service) QueueRemove(req QueueActionRequest, resp *QueueActionResponse) error {
	return s.batch("remove", req.IDs, s.daemon.Queue().Remove, resp)
}

func (s *service) batch(action string, ids []string, op func(string) error, resp *QueueActionResponse) error {
	if len(ids) == 0 {
		return fmt.Errorf("queue %s requires at least one id", action)
	}
	result, err := api.ApplyToItems(ids, op)
	if err != nil {
		return err
	}
	*resp = result
	s.logger.Info("queue action applied",
		logging.String(logging.FieldEventType, "queue_"+action),
		logging.Int("requested", len(ids)),
		logging.Int("applied", result.AppliedCount))
	return nil
}

func (s *service) QueueMove(req QueueMoveRequest, resp *QueueMoveResponse) error {
	dir, err := queue.ParseDirection(req.Direction)
	if err != nil {
		return err
	}
	if err := s.daemon.Queue().Move(req.ID, dir); err != nil {
		return err
	}
	resp.Items = s.queue.List()
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	q := s.daemon.Queue()
	if req.All {
		resp.Removed = q.ClearAll()
	} else {
		resp.Removed = q.ClearCompleted()
	}
	s.logger.Info("queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Bool("all", req.All),
		logging.Int("removed_count", resp.Removed))
	return nil
}

func (s *service) QueueConcurrency(req QueueConcurrencyRequest, resp *QueueConcurrencyResponse) error {
	q := s.daemon.Queue()
	if req.MaxConcurrent == 0 {
		resp.MaxConcurrent = q.MaxConcurrent()
		return nil
	}
	resp.MaxConcurrent = q.SetMaxConcurrent(req.MaxConcurrent)
	return nil
}

func (s *service) AutoStart(req AutoStartRequest, resp *AutoStartResponse) error {
	if req.Enabled != nil {
		s.daemon.SetAutoStart(*req.Enabled)
	}
	resp.Enabled = s.daemon.Status(s.ctx).Dispatcher.AutoStart
	return nil
}

func (s *service) HistoryList(req HistoryListRequest, resp *HistoryListResponse) error {
	entries, err := s.daemon.ListHistory(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = api.FromHistoryEntries(entries)
	return nil
}

func (s *service) HistoryRemove(req HistoryRemoveRequest, resp *HistoryRemoveResponse) error {
	if err := s.daemon.RemoveHistory(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	removed, err := s.daemon.ClearHistory(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("history cleared",
		logging.String(logging.FieldEventType, "history_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
