package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Submit enqueues an episode or feed URL.
func (c *Client) Submit(req SubmitRequest) (*JobResponse, error) {
	var resp JobResponse
	if err := c.invoke("Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches one job by id.
func (c *Client) Status(jobID string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.invoke("Status", JobRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns every job grouped by feed.
func (c *Client) History() (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.invoke("History", HistoryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FeedChildren lists a feed job's episodes.
func (c *Client) FeedChildren(jobID string) (*FeedChildrenResponse, error) {
	var resp FeedChildrenResponse
	if err := c.invoke("FeedChildren", JobRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry resubmits a failed job.
func (c *Client) Retry(jobID string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.invoke("Retry", JobRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DaemonStatus retrieves the daemon and pool status.
func (c *Client) DaemonStatus() (*DaemonStatusResponse, error) {
	var resp DaemonStatusResponse
	if err := c.invoke("DaemonStatus", DaemonStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.invoke("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
