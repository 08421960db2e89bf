package interp

import (
	"fmt"

	"github.com/rv32emu/rv32emu/decoder"
	"github.com/rv32emu/rv32emu/vm"
)

const (
	sysExit  = 93
	sysWrite = 64

	stdoutFD = 1
	stderrFD = 2
)

// executeSystem handles the SYSTEM opcode's two instructions: ECALL (imm 0)
// and EBREAK (imm 1). Both are zero-operand trap instructions; everything
// else about the trap is communicated through the register file.
func (ip *Interpreter) executeSystem(inst decoder.Instruction) error {
	switch inst.Imm {
	case 0:
		return ip.ecall()
	case 1:
		ip.State = StateBreakpoint
		return &EBreakError{PC: ip.Regs.PC}
	default:
		ip.Regs.PC += 4
		return nil
	}
}

// ecall implements the POSIX-flavored syscall ABI: number in a7 (x17), up
// to three arguments in a0-a2 (x10-x12), return value written back to a0.
//
// Two-tier error philosophy: VM integrity failures (a bad memory address)
// halt the run by returning an error up through Step; syscalls the guest
// invokes legitimately but that fail for an expected reason report the
// failure through a0 (-1) and let execution continue. An unrecognized
// syscall number is the latter case.
func (ip *Interpreter) ecall() error {
	number := ip.Regs.Get(vm.RegA7)
	pc := ip.Regs.PC

	switch number {
	case sysExit:
		code := int32(ip.Regs.Get(vm.RegA0))
		ip.Regs.PC += 4
		return &ExitError{Code: code}

	case sysWrite:
		fd := ip.Regs.Get(vm.RegA0)
		addr := ip.Regs.Get(vm.RegA1)
		length := ip.Regs.Get(vm.RegA2)
		n, err := ip.write(fd, addr, length)
		if err != nil {
			ip.Regs.Set(vm.RegA0, 0xFFFFFFFF)
		} else {
			ip.Regs.Set(vm.RegA0, uint32(n))
		}
		ip.Regs.PC += 4
		return nil

	default:
		ip.Regs.Set(vm.RegA0, 0xFFFFFFFF)
		ip.Regs.PC += 4
		return &UnknownSyscallError{Number: number, PC: pc}
	}
}

// write copies length bytes from guest memory starting at addr to the
// interpreter's Output, but only for fd 1 or 2; any other descriptor is an
// expected failure, not a VM fault.
func (ip *Interpreter) write(fd, addr, length uint32) (int, error) {
	if fd != stdoutFD && fd != stderrFD {
		return 0, fmt.Errorf("write to unsupported fd %d", fd)
	}
	data, err := ip.Mem.GetBytes(addr, length)
	if err != nil {
		return 0, err
	}
	return ip.Output.Write(data)
}
