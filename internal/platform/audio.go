package platform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
)

// ErrNoAudioTool indicates none of the known command-line players is installed.
var ErrNoAudioTool = errors.New("no audio player command found")

// CommandPlayer plays sound files through an installed command-line player.
// Play returns once playback has started; the process is reaped in the
// background so a long sound does not hold up the caller.
type CommandPlayer struct {
	soundsDir string
	tools     []string
	lookPath  func(string) (string, error)
}

// NewCommandPlayer creates a player resolving sound paths under soundsDir.
func NewCommandPlayer(soundsDir string) *CommandPlayer {
	return &CommandPlayer{
		soundsDir: soundsDir,
		tools:     audioTools(runtime.GOOS),
		lookPath:  exec.LookPath,
	}
}

// Play starts playing soundPath at volume in [0,1].
func (player *CommandPlayer) Play(ctx context.Context, soundPath string, volume float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := filepath.Join(player.soundsDir, filepath.FromSlash(soundPath))
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("sound file: %w", err)
	}

	for _, tool := range player.tools {
		binary, err := player.lookPath(tool)
		if err != nil {
			continue
		}
		cmd := exec.Command(binary, audioArgs(tool, file, volume)...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", tool, err)
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				log.Printf("audio: %s exited: %v", tool, err)
			}
		}()
		return nil
	}
	return ErrNoAudioTool
}

func audioTools(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"afplay", "ffplay"}
	case "windows":
		return []string{"ffplay"}
	default:
		return []string{"paplay", "pw-play", "ffplay", "mpg123"}
	}
}

func audioArgs(tool, file string, volume float64) []string {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	switch tool {
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64), file}
	case "paplay":
		return []string{"--volume=" + strconv.Itoa(int(volume*65536)), file}
	case "pw-play":
		return []string{"--volume=" + strconv.FormatFloat(volume, 'f', 2, 64), file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(int(volume * 100)), file}
	case "mpg123":
		return []string{"-q", "-f", strconv.Itoa(int(volume * 32768)), file}
	default:
		return []string{file}
	}
}
