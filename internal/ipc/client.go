package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		// Closing the rpc client also closes conn.
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// QueueAdd enqueues a download.
func (c *Client) QueueAdd(req QueueAddRequest) (*QueueAddResponse, error) {
	return call[QueueAddResponse](c, "QueueAdd", req)
}

// QueueList returns queue items optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

// QueueDescribe returns details for a single queue item.
func (c *Client) QueueDescribe(id string) (*QueueDescribeResponse, error) {
	return call[QueueDescribeResponse](c, "QueueDescribe", QueueDescribeRequest{ID: id})
}

// QueueStart dispatches the given items immediately.
func (c *Client) QueueStart(ids []string) (*QueueActionResponse, error) {
	return call[QueueActionResponse](c, "QueueStart", QueueActionRequest{IDs: ids})
}

// QueuePause pauses running items.
func (c *Client) QueuePause(ids []string) (*QueueActionResponse, error) {
	return call[QueueActionResponse](c, "QueuePause", QueueActionRequest{IDs: ids})
}

// QueueResume returns paused items to pending.
func (c *Client) QueueResume(ids []string) (*QueueActionResponse, error) {
	return call[QueueActionResponse](c, "QueueResume", QueueActionRequest{IDs: ids})
}

// QueueCancel cancels items.
func (c *Client) QueueCancel(ids []string) (*QueueActionResponse, error) {
	return call[QueueActionResponse](c, "QueueCancel", QueueActionRequest{IDs: ids})
}

// QueueRemove deletes items from the queue.
func (c *Client) QueueRemove(ids []string) (*QueueActionResponse, error) {
	return call[QueueActionResponse](c, "QueueRemove", QueueActionRequest{IDs: ids})
}

// QueueMove shifts an item up or down.
func (c *Client) QueueMove(id, direction string) (*QueueMoveResponse, error) {
	return call[QueueMoveResponse](c, "QueueMove", QueueMoveRequest{ID: id, Direction: direction})
}

// QueueClear removes finished items, or every item when all is set.
func (c *Client) QueueClear(all bool) (*QueueClearResponse, error) {
	return call[QueueClearResponse](c, "QueueClear", QueueClearRequest{All: all})
}

// QueueConcurrency reads the concurrency ceiling, or sets it when value > 0.
func (c *Client) QueueConcurrency(value int) (*QueueConcurrencyResponse, error) {
	return call[QueueConcurrencyResponse](c, "QueueConcurrency", QueueConcurrencyRequest{MaxConcurrent: value})
}

// AutoStart reads automatic dispatch, or sets it when enabled is non-nil.
func (c *Client) AutoStart(enabled *bool) (*AutoStartResponse, error) {
	return call[AutoStartResponse](c, "AutoStart", AutoStartRequest{Enabled: enabled})
}

// HistoryList returns completed downloads, newest first.
func (c *Client) HistoryList(limit int) (*HistoryListResponse, error) {
	return call[HistoryListResponse](c, "HistoryList", HistoryListRequest{Limit: limit})
}

// HistoryRemove deletes one history entry.
func (c *Client) HistoryRemove(id int64) (*HistoryRemoveResponse, error) {
	return call[HistoryRemoveResponse](c, "HistoryRemove", HistoryRemoveRequest{ID: id})
}

// HistoryClear removes every history entry.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	return call[HistoryClearResponse](c, "HistoryClear", HistoryClearRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
