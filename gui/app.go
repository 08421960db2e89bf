// Package main is a minimal fyne window for stepping through a loaded ELF
// binary. It has no assembly editor: the teacher's frontend parsed and
// edited ARM assembly source through a wails-backed web UI, but this
// project has no assembler, only an ELF loader, so there is no source to
// edit -- just a binary to load and step through.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rv32emu/rv32emu/interp"
	"github.com/rv32emu/rv32emu/service"
	"github.com/rv32emu/rv32emu/vm"
)

var debugLog *log.Logger

func init() {
	if os.Getenv("RV32EMU_DEBUG") != "" {
		f, err := os.OpenFile("/tmp/rv32emu-gui-debug.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open debug log: %v\n", err)
			debugLog = log.New(os.Stderr, "GUI: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			debugLog = log.New(f, "GUI: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}
}

// App is the fyne-backed standalone debugger window. It wraps the same
// service.DebuggerService the HTTP API drives, so loading and stepping
// behave identically across both frontends.
type App struct {
	service *service.DebuggerService
	machine *interp.Interpreter

	fyneApp fyne.App
	Window  fyne.Window

	RegisterView    *widget.TextGrid
	DisassemblyView *widget.TextGrid
	MemoryView      *widget.TextGrid
	StackView       *widget.TextGrid
	BreakpointsList *widget.List
	ConsoleOutput   *widget.TextGrid
	StatusLabel     *widget.Label
	Toolbar         *widget.Toolbar

	MemoryAddress uint32

	breakpoints []string

	consoleBuffer strings.Builder
	consoleMutex  sync.Mutex
}

// consoleWriter forwards interpreter output into the console view.
type consoleWriter struct {
	app *App
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.app.consoleMutex.Lock()
	w.app.consoleBuffer.Write(p)
	w.app.consoleMutex.Unlock()
	w.app.updateConsole()
	return len(p), nil
}

// NewApp creates the application, its machine, and its window.
func NewApp() *App {
	machine := interp.New(vm.NewRegisters(), vm.NewMemory(vm.DefaultMemorySize))

	a := &App{
		service:     service.NewDebuggerService(machine),
		machine:     machine,
		fyneApp:     app.New(),
		breakpoints: []string{},
	}
	a.Window = a.fyneApp.NewWindow("RV32I Emulator")
	machine.Output = &consoleWriter{app: a}

	a.initializeViews()
	a.buildLayout()
	a.setupToolbar()
	a.Window.Resize(fyne.NewSize(1200, 800))

	return a
}

// Run shows the window and blocks until it's closed.
func (a *App) Run() {
	a.Window.ShowAndRun()
}

// LoadELFFile reads and loads the ELF binary at path.
func (a *App) LoadELFFile(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from a file dialog or command-line argument, user-controlled by design
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := a.service.LoadELF(bytesReaderAt(data)); err != nil {
		return fmt.Errorf("failed to load ELF: %w", err)
	}

	a.StatusLabel.SetText(fmt.Sprintf("Loaded %s", path))
	a.updateViews()
	return nil
}

// bytesReaderAt adapts a byte slice to io.ReaderAt without importing the
// bytes package just for bytes.NewReader.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// initializeViews creates all the view panels.
func (a *App) initializeViews() {
	a.RegisterView = widget.NewTextGrid()
	a.updateRegisters()

	a.DisassemblyView = widget.NewTextGrid()
	a.updateDisassembly()

	a.MemoryView = widget.NewTextGrid()
	a.updateMemory()

	a.StackView = widget.NewTextGrid()
	a.updateStack()

	a.BreakpointsList = widget.NewList(
		func() int { return len(a.breakpoints) },
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(a.breakpoints[id])
		},
	)

	a.ConsoleOutput = widget.NewTextGrid()
	a.StatusLabel = widget.NewLabel("No ELF loaded")
}

// buildLayout assembles the main window layout.
func (a *App) buildLayout() {
	disasmPanel := container.NewBorder(
		widget.NewLabel("Disassembly"), nil, nil, nil,
		container.NewScroll(a.DisassemblyView),
	)

	registerPanel := container.NewBorder(
		widget.NewLabel("Registers"), nil, nil, nil,
		container.NewScroll(a.RegisterView),
	)

	breakpointsPanel := container.NewBorder(
		widget.NewLabel("Breakpoints"), nil, nil, nil,
		container.NewScroll(a.BreakpointsList),
	)

	bottomTabs := container.NewAppTabs(
		container.NewTabItem("Memory", container.NewScroll(a.MemoryView)),
		container.NewTabItem("Stack", container.NewScroll(a.StackView)),
		container.NewTabItem("Console", container.NewScroll(a.ConsoleOutput)),
	)

	rightTop := container.NewVSplit(registerPanel, breakpointsPanel)
	rightTop.SetOffset(0.6)

	rightPanel := container.NewVSplit(rightTop, bottomTabs)
	rightPanel.SetOffset(0.5)

	mainSplit := container.NewHSplit(container.NewMax(disasmPanel), rightPanel)
	mainSplit.SetOffset(0.5)

	statusBar := container.NewBorder(nil, nil, nil, nil, a.StatusLabel)

	content := container.NewBorder(a.Toolbar, statusBar, nil, nil, mainSplit)
	a.Window.SetContent(content)
}

// setupToolbar wires the load/run/step/breakpoint controls.
func (a *App) setupToolbar() {
	a.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() {
			a.openFileDialog()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() {
			a.runProgram()
		}),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), func() {
			a.stepProgram()
		}),
		widget.NewToolbarAction(theme.MediaStopIcon(), func() {
			a.stopProgram()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			a.addBreakpoint()
		}),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() {
			a.clearBreakpoints()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			a.updateViews()
			a.StatusLabel.SetText("Views refreshed")
		}),
	)
}

// openFileDialog prompts for an ELF file and loads it.
func (a *App) openFileDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.Window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		if loadErr := a.LoadELFFile(reader.URI().Path()); loadErr != nil {
			dialog.ShowError(loadErr, a.Window)
		}
	}, a.Window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".elf", ""}))
	d.Show()
}

// updateViews refreshes every view panel.
func (a *App) updateViews() {
	a.updateRegisters()
	a.updateDisassembly()
	a.updateMemory()
	a.updateStack()
	a.updateBreakpoints()
	a.updateConsole()
}

func (a *App) updateRegisters() {
	var sb strings.Builder
	regs := a.service.GetRegisterState()

	sb.WriteString("General Purpose Registers:\n")
	sb.WriteString("--------------------------\n")
	for i := 0; i < 32; i++ {
		sb.WriteString(fmt.Sprintf("x%-2d: 0x%08X  (%d)\n", i, regs.Registers[i], int32(regs.Registers[i])))
	}
	sb.WriteString(fmt.Sprintf("\npc:  0x%08X  (%d)\n", regs.PC, int32(regs.PC)))
	sb.WriteString(fmt.Sprintf("cycles: %d\n", regs.Cycles))

	a.RegisterView.SetText(sb.String())
}

func (a *App) updateDisassembly() {
	var sb strings.Builder
	regs := a.service.GetRegisterState()
	pc := regs.PC & 0xFFFFFFFC

	lines := a.service.GetDisassembly(pc, 24)
	for _, line := range lines {
		prefix := "  "
		if line.Address == regs.PC {
			prefix = "> "
		}
		symbol := ""
		if line.Symbol != "" {
			symbol = " <" + line.Symbol + ">"
		}
		sb.WriteString(fmt.Sprintf("%s%08X: %08X%s\n", prefix, line.Address, line.Opcode, symbol))
	}

	a.DisassemblyView.SetText(sb.String())
}

func (a *App) updateMemory() {
	var sb strings.Builder
	regs := a.service.GetRegisterState()

	addr := a.MemoryAddress
	if addr == 0 {
		addr = regs.PC
	}
	addr &= 0xFFFFFFF0

	sb.WriteString(fmt.Sprintf("Memory at 0x%08X:\n", addr))
	sb.WriteString("----------------------------------------------------\n")

	data, _ := a.service.GetMemory(addr, 256)
	for row := 0; row < 16; row++ {
		lineAddr := addr + uint32(row*16)
		sb.WriteString(fmt.Sprintf("%08X: ", lineAddr))

		for col := 0; col < 16; col++ {
			idx := row*16 + col
			if idx < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[idx]))
			} else {
				sb.WriteString("?? ")
			}
		}
		sb.WriteString(" ")
		for col := 0; col < 16; col++ {
			idx := row*16 + col
			if idx < len(data) {
				b := data[idx]
				if b >= 32 && b < 127 {
					sb.WriteByte(b)
				} else {
					sb.WriteString(".")
				}
			}
		}
		sb.WriteString("\n")
	}

	a.MemoryView.SetText(sb.String())
}

func (a *App) updateStack() {
	var sb strings.Builder
	regs := a.service.GetRegisterState()
	sp := regs.Registers[vm.RegSP]

	sb.WriteString(fmt.Sprintf("Stack at sp=0x%08X:\n", sp))
	sb.WriteString("------------------------------\n")

	entries := a.service.GetStack(-8, 32)
	for _, e := range entries {
		prefix := "  "
		if e.Address == sp {
			prefix = "> "
		}
		symbol := ""
		if e.Symbol != "" {
			symbol = " <" + e.Symbol + ">"
		}
		sb.WriteString(fmt.Sprintf("%s%08X: %08X  (%d)%s\n", prefix, e.Address, e.Value, int32(e.Value), symbol))
	}

	a.StackView.SetText(sb.String())
}

func (a *App) updateBreakpoints() {
	bps := a.service.GetBreakpoints()
	a.breakpoints = make([]string, 0, len(bps))

	for _, bp := range bps {
		symbol := a.service.GetSymbolForAddress(bp.Address)
		if symbol != "" {
			symbol = " [" + symbol + "]"
		}
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		a.breakpoints = append(a.breakpoints, fmt.Sprintf("0x%08X%s (%s)", bp.Address, symbol, status))
	}

	a.BreakpointsList.Refresh()
}

func (a *App) updateConsole() {
	a.consoleMutex.Lock()
	defer a.consoleMutex.Unlock()
	a.ConsoleOutput.SetText(a.consoleBuffer.String())
}

func (a *App) runProgram() {
	a.StatusLabel.SetText("Running...")
	a.service.SetRunning(true)

	go func() {
		debugLog.Println("RunUntilHalt goroutine started")
		err := a.service.RunUntilHalt()
		debugLog.Printf("RunUntilHalt returned: %v", err)

		state := a.service.GetExecutionState()
		switch state {
		case service.StateBreakpoint:
			regs := a.service.GetRegisterState()
			a.StatusLabel.SetText(fmt.Sprintf("Stopped at breakpoint, pc=0x%08X", regs.PC))
		case service.StateHalted:
			a.StatusLabel.SetText(fmt.Sprintf("Program exited with code %d", a.service.GetExitCode()))
		case service.StateError:
			a.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
		}

		a.updateViews()
	}()
}

func (a *App) stepProgram() {
	// A freshly loaded or reset machine is also Halted; only refuse to step
	// once instructions have run.
	if a.service.GetExecutionState() == service.StateHalted && a.service.GetRegisterState().Cycles > 0 {
		a.StatusLabel.SetText("Program has halted")
		return
	}

	if err := a.service.Step(); err != nil {
		a.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
		a.updateViews()
		return
	}

	regs := a.service.GetRegisterState()
	if a.service.GetExecutionState() == service.StateHalted {
		a.StatusLabel.SetText(fmt.Sprintf("Program exited with code %d", a.service.GetExitCode()))
	} else {
		a.StatusLabel.SetText(fmt.Sprintf("Stepped to pc=0x%08X", regs.PC))
	}

	a.updateViews()
}

func (a *App) stopProgram() {
	a.service.Pause()
	a.StatusLabel.SetText("Stopped")
	a.updateViews()
}

func (a *App) addBreakpoint() {
	regs := a.service.GetRegisterState()
	if err := a.service.AddBreakpoint(regs.PC); err != nil {
		dialog.ShowError(err, a.Window)
		return
	}
	a.updateBreakpoints()
	a.StatusLabel.SetText(fmt.Sprintf("Breakpoint added at 0x%08X", regs.PC))
}

func (a *App) clearBreakpoints() {
	a.service.ClearAllBreakpoints()
	a.updateBreakpoints()
	a.StatusLabel.SetText("All breakpoints cleared")
}
