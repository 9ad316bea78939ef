package player

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
)

// uciDriver owns one engine subprocess and speaks the UCI text protocol
// line-by-line over its stdin/stdout, in the same channel-fed shape as
// herohde-morlock/pkg/engine/uci/uci.go's Driver — here the daemon plays
// the GUI role, so it writes "uci"/"isready"/"position"/"go" and reads
// "uciok"/"readyok"/"bestmove" instead of the reverse.
type uciDriver struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string

	mu        sync.Mutex
	bestMove  chan string
	awaitingBestMove bool
}

func startUCIDriver(path string, args ...string) (*uciDriver, error) {
	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("player: uci stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("player: uci stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("player: uci start: %w", err)
	}

	d := &uciDriver{
		cmd:      cmd,
		stdin:    stdin,
		lines:    make(chan string, 64),
		bestMove: make(chan string, 1),
	}
	go d.readLoop(stdout)
	return d, nil
}

func (d *uciDriver) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "bestmove") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				select {
				case d.bestMove <- fields[1]:
				default:
				}
			}
			continue
		}
		select {
		case d.lines <- line:
		default:
		}
	}
	close(d.lines)
}

func (d *uciDriver) send(line string) error {
	_, err := io.WriteString(d.stdin, line+"\n")
	return err
}

// handshake sends "uci"/"isready" and waits for "uciok"/"readyok", with an
// overall deadline.
func (d *uciDriver) handshake(deadline time.Duration) error {
	if err := d.send("uci"); err != nil {
		return err
	}
	if err := d.waitFor("uciok", deadline); err != nil {
		return err
	}
	if err := d.send("isready"); err != nil {
		return err
	}
	return d.waitFor("readyok", deadline)
}

func (d *uciDriver) waitFor(token string, deadline time.Duration) error {
	timeout := time.After(deadline)
	for {
		select {
		case line, ok := <-d.lines:
			if !ok {
				return fmt.Errorf("player: uci engine exited before %q", token)
			}
			if strings.Contains(line, token) {
				return nil
			}
		case <-timeout:
			return fmt.Errorf("player: uci handshake timed out waiting for %q", token)
		}
	}
}

// GoMove sends "position fen ... moves ..." then "go movetime ms" and
// blocks for bestmove.
func (d *uciDriver) GoMove(fen string, moves []string, thinkTime time.Duration) (string, error) {
	posCmd := "position fen " + fen
	if len(moves) > 0 {
		posCmd += " moves " + strings.Join(moves, " ")
	}
	if err := d.send(posCmd); err != nil {
		return "", err
	}
	ms := int(thinkTime / time.Millisecond)
	if err := d.send("go movetime " + strconv.Itoa(ms)); err != nil {
		return "", err
	}

	select {
	case mv := <-d.bestMove:
		return mv, nil
	case <-time.After(thinkTime + 5*time.Second):
		return "", fmt.Errorf("player: uci engine did not reply with bestmove in time")
	}
}

func (d *uciDriver) stop() {
	_ = d.send("stop")
	_ = d.send("quit")
	_ = d.stdin.Close()
	_ = d.cmd.Wait()
}
