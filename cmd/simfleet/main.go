package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abiosoft/ishell"

	"github.com/cansim/fleetsim/fleet"
)

func main() {
	configPath := flag.String("config", "./fleet.json", "path to the fleet config JSON document")
	stepperHz := flag.Float64("stepper-hz", 0, "override the simulation stepper frequency (0 = use default)")
	flag.Parse()

	cfg, err := fleet.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simfleet: unable to load config %q: %v\n", *configPath, err)
		os.Exit(1)
	}

	fl, err := fleet.New(cfg, *stepperHz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simfleet: unable to build fleet: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=============================\n")
	fmt.Printf("= CAN Servo Fleet Simulator =\n")
	fmt.Printf("=============================\n")
	fmt.Printf("Simulation frequency: %.0f Hz\n", fl.Stepper().Frequency())
	fmt.Printf("Boards: %d\n\n", len(fl.Boards()))

	fl.Start()
	defer fl.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shell := ishell.New()
	shell.Println("simfleet interactive shell (type 'help' for commands)")

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "status <board> - show detailed position/velocity/control status",
		Func: func(c *ishell.Context) {
			cmdStatus(c, fl)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "set",
		Help: "set <board> <signal> - set a board's control signal directly",
		Func: func(c *ishell.Context) {
			cmdSet(c, fl)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "boards",
		Help: "boards - list every board in the fleet",
		Func: func(c *ishell.Context) {
			cmdBoards(c, fl)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "help",
		Help: "help - show this help message",
		Func: func(c *ishell.Context) {
			cmdHelp(c)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "quit",
		Help: "quit - stop the fleet and exit",
		Func: func(c *ishell.Context) {
			c.Stop()
		},
	})

	go func() {
		<-sigCh
		shell.Println("\nreceived interrupt, shutting down")
		shell.Stop()
	}()

	shell.Run()
}

// cmdStatus mirrors the original motor service's detailed status readout:
// position in steps/radians/degrees, velocity in RPM and rad/s, and the
// current control signal.
func cmdStatus(c *ishell.Context, fl *fleet.Fleet) {
	boards := fl.Boards()

	indices := make([]int, 0, len(boards))
	if len(c.Args) == 0 {
		for i := range boards {
			indices = append(indices, i)
		}
	} else {
		idx, err := strconv.Atoi(c.Args[0])
		if err != nil || idx < 0 || idx >= len(boards) {
			c.Printf("invalid board index %q\n", c.Args[0])
			return
		}
		indices = append(indices, idx)
	}

	for _, i := range indices {
		b := boards[i]
		sv := b.Servo()
		motor, encoder := sv.Motor(), sv.Encoder()

		positionRad := encoder.PositionRadians()
		velocityRadS := motor.AngularVelocity()
		velocityRPM := velocityRadS * (60.0 / (2.0 * math.Pi))

		c.Printf("\n====== Board %d (can id 0x%03X, %q) ======\n", i, b.CanID(), sv.Name())
		c.Printf("Position: %d steps (%.3f rad, %.3f deg)\n", encoder.PositionSteps(), positionRad, positionRad*180.0/math.Pi)
		c.Printf("Velocity: %.3f RPM (%.3f rad/s)\n", velocityRPM, velocityRadS)
		c.Printf("Control Signal: %d (range: -%d to +%d)\n", b.ControlSignal(), motor.MaxControlSignal(), motor.MaxControlSignal())
		c.Println("==========================")
	}
}

func cmdSet(c *ishell.Context, fl *fleet.Fleet) {
	if len(c.Args) != 2 {
		c.Println("usage: set <board> <signal>")
		return
	}

	idx, err := strconv.Atoi(c.Args[0])
	if err != nil || idx < 0 || idx >= len(fl.Boards()) {
		c.Printf("invalid board index %q\n", c.Args[0])
		return
	}

	value, err := strconv.Atoi(c.Args[1])
	if err != nil || value < math.MinInt8 || value > math.MaxInt8 {
		c.Printf("invalid control value %q (must fit in int8)\n", c.Args[1])
		return
	}

	b := fl.Boards()[idx]
	b.InjectEffortCommand(int8(value))
	c.Printf("board %d (can id 0x%03X) control set to %d\n", idx, b.CanID(), value)
}

func cmdBoards(c *ishell.Context, fl *fleet.Fleet) {
	for i, b := range fl.Boards() {
		sv := b.Servo()
		c.Printf("%d: %q can_id=0x%03X running=%v max_velocity=%.1f RPM max_control=%d bits=%d\n",
			i, sv.Name(), b.CanID(), b.IsRunning(),
			sv.Motor().MaxAngularVelocity()*(60.0/(2.0*math.Pi)),
			sv.Motor().MaxControlSignal(), sv.Encoder().Bits())
	}
}

func cmdHelp(c *ishell.Context) {
	c.Println("\nAvailable commands:")
	c.Println("  status <board>     - Show detailed position/velocity/control status")
	c.Println("  set <board> <sig>  - Set a board's control signal directly")
	c.Println("  boards             - List every board in the fleet")
	c.Println("  help               - Show this help message")
	c.Println("  quit               - Stop the fleet and exit")
	c.Println("\nExamples:")
	c.Println("  set 0 50           - Apply control signal of 50 to board 0")
	c.Println("  set 0 1            - Stop board 0 without position hold")
}
