package tftp

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wjemai/tftpd/pkg/client"
	"github.com/wjemai/tftpd/pkg/wire"
)

func startTestServer(t *testing.T, fs *memStore) (*Server, string) {
	t.Helper()

	srv := NewServer(zap.NewNop().Sugar(), fs, "0")

	done := make(chan error, 1)

	go func() {
		done <- srv.ListenAndServe()
	}()

	addr := srv.LocalAddr()
	require.NotNil(t, addr)

	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})

	port := addr.(*net.UDPAddr).Port

	return srv, "127.0.0.1:" + strconv.Itoa(port)
}

func TestIntegration_ReadEmptyFile(t *testing.T) {
	fs := newMemStore()
	fs.put("empty.txt", nil)

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := c.Get(ctx, "empty.txt", wire.ModeOctet)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestIntegration_ReadMultiBlockFile(t *testing.T) {
	fs := newMemStore()
	content := bytes.Repeat([]byte{0x41}, 1024)
	fs.put("big.txt", content)

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := c.Get(ctx, "big.txt", wire.ModeOctet)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestIntegration_ReadNetasciiFile(t *testing.T) {
	fs := newMemStore()
	fs.put("nl.txt", []byte{0x0A, 0x0D, 0x42})

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := c.Get(ctx, "nl.txt", wire.ModeNetascii)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0D, 0x0A, 0x0D, 0x00, 0x42}, data)
}

func TestIntegration_ReadMissingFileReturnsError(t *testing.T) {
	fs := newMemStore()

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Get(ctx, "nope.txt", wire.ModeOctet)
	assert.Error(t, err)
}

func TestIntegration_WriteThenReadBack(t *testing.T) {
	fs := newMemStore()

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := bytes.Repeat([]byte{0x37}, 1500)
	require.NoError(t, c.Put(ctx, "uploaded.txt", wire.ModeOctet, payload))

	stored, ok := fs.get("uploaded.txt")
	require.True(t, ok)
	assert.Equal(t, payload, stored)
}

func TestIntegration_WriteRefusesExistingFile(t *testing.T) {
	fs := newMemStore()
	fs.put("dup.txt", []byte("already here"))

	_, addr := startTestServer(t, fs)

	c := client.NewClient(zap.NewNop().Sugar())
	require.NoError(t, c.Connect(addr))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Put(ctx, "dup.txt", wire.ModeOctet, []byte("new content"))
	assert.Error(t, err)
}

func TestIntegration_UnknownPeerGetsUnknownID(t *testing.T) {
	fs := newMemStore()
	content := bytes.Repeat([]byte{0x58}, 600)
	fs.put("slow.txt", content)

	_, addr := startTestServer(t, fs)

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	require.NoError(t, err)

	legit, err := net.DialUDP("udp", nil, udpAddr)
	require.NoError(t, err)

	defer legit.Close()

	rrq := &wire.Request{Opcode: wire.OpCodeRRQ, Filename: "slow.txt", Mode: wire.ModeOctet}
	b, err := rrq.MarshalBinary()
	require.NoError(t, err)

	_, err = legit.Write(b)
	require.NoError(t, err)

	buf := make([]byte, wire.DatagramSize)

	require.NoError(t, legit.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, err := legit.Read(buf)
	require.NoError(t, err)

	pkt, err := wire.Decode(buf[:n])
	require.NoError(t, err)

	_, ok := pkt.(*wire.Data)
	require.True(t, ok)

	impostor, err := net.DialUDP("udp", nil, udpAddr)
	require.NoError(t, err)

	defer impostor.Close()

	ack := &wire.Ack{BlockNum: 1}
	ab, err := ack.MarshalBinary()
	require.NoError(t, err)

	_, err = impostor.Write(ab)
	require.NoError(t, err)

	require.NoError(t, impostor.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, err = impostor.Read(buf)
	require.NoError(t, err)

	pkt, err = wire.Decode(buf[:n])
	require.NoError(t, err)

	errPkt, ok := pkt.(*wire.Error)
	require.True(t, ok)
	assert.Equal(t, wire.ErrUnknownTransferID, errPkt.ErrorCode)
}
