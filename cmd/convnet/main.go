// Command convnet trains, evaluates and inspects convolutional classifiers.
//
// Usage:
//
//	convnet train   [flags]        train a new network, or resume one
//	convnet test    [flags] MODEL  report the test accuracy of a saved network
//	convnet inspect MODEL...       describe saved networks
//	convnet version
//
// Logging is controlled by the klog flags placed before the subcommand,
// e.g. "convnet -v=1 train -mnist data/mnist".
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"k8s.io/klog/v2"
)

const version = "v0.1.0"

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	defer klog.Flush()

	if err := run(flag.Args(), os.Stdout); err != nil {
		klog.Flush()
		fmt.Fprintf(os.Stderr, "convnet: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches args[0] to its subcommand.
func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return fmt.Errorf("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "train":
		return runTrain(rest, stdout)
	case "test":
		return runTest(rest, stdout)
	case "inspect":
		return runInspect(rest, stdout)
	case "version":
		_, err := fmt.Fprintf(stdout, "convnet %s\n", version)
		return err
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "convnet - convolutional neural networks from scratch")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train a network (convnet train -h for flags)")
	fmt.Fprintln(w, "  test       Evaluate a saved network on a testing set")
	fmt.Fprintln(w, "  inspect    Describe saved networks")
	fmt.Fprintln(w, "  version    Show version")
}
