// Package client implements the TCP client used by cmd/ignitekv-client:
// one persistent connection, a request encoded and flushed per call, and a
// single response frame decoded back before the call returns.
package client

import (
	"bufio"
	stdErrors "errors"
	"net"

	"github.com/dreamerlzl/ignitekv/internal/codec"
	"github.com/dreamerlzl/ignitekv/pkg/errors"
)

// Client is a single TCP connection to an ignitekv server.
type Client struct {
	conn    net.Conn
	writer  *bufio.Writer
	decoder *codec.ResponseDecoder
}

// Dial connects to addr and returns a ready-to-use Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.NewServerConnFailError(err, addr)
	}

	return &Client{
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		decoder: codec.NewResponseDecoder(bufio.NewReader(conn)),
	}, nil
}

// Set stores key=value on the server.
func (c *Client) Set(key, value string) error {
	resp, err := c.call(codec.Request{Op: codec.OpSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Get retrieves key's value. A missing key returns ("", false, nil) —
// found is false, never an error — matching the engine's own Get contract.
func (c *Client) Get(key string) (value string, found bool, err error) {
	resp, err := c.call(codec.Request{Op: codec.OpGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if resp.Status == codec.StatusErr {
		return "", false, responseError(resp)
	}
	return resp.Value, resp.Found, nil
}

// Remove deletes key from the server.
func (c *Client) Remove(key string) error {
	resp, err := c.call(codec.Request{Op: codec.OpRemove, Key: key})
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(req codec.Request) (codec.Response, error) {
	if err := codec.EncodeRequest(c.writer, req); err != nil {
		return codec.Response{}, err
	}
	if err := c.writer.Flush(); err != nil {
		return codec.Response{}, err
	}

	resp, err := c.decoder.Next()
	if err != nil {
		return codec.Response{}, err
	}
	return resp, nil
}

func responseError(resp codec.Response) error {
	if resp.Status == codec.StatusErr {
		return stdErrors.New(resp.Error)
	}
	return nil
}
