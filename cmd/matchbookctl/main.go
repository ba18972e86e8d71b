// Command matchbookctl is the interactive order-entry client.
// Grounded in the teacher's cmd/client/client.go (connect, spawn a
// reader goroutine for reports, read stdin commands in a loop).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/dorufloare/matchbook/internal/cli"
	matchnet "github.com/dorufloare/matchbook/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matchbookd server")
	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("matchbookctl: unable to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	reader := cli.NewReader(os.Stdin)
	for {
		cmd, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		if cmd.Cancel {
			if _, err := conn.Write(matchnet.EncodeCancelOrder(cmd.OrderID)); err != nil {
				fmt.Println("error sending cancel:", err)
			}
			continue
		}

		o := cmd.Order
		wire := matchnet.EncodeNewOrder(o.Kind, o.Side, o.Price, o.Quantity, o.TriggerPrice, o.TotalQuantity, o.DisplayQty, o.Owner)
		if _, err := conn.Write(wire); err != nil {
			fmt.Println("error sending order:", err)
		}
	}
}

func readReports(conn net.Conn) {
	r := bufio.NewReaderSize(conn, 4096)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if err != io.EOF {
				fmt.Println("connection lost:", err)
			}
			return
		}
		report, err := matchnet.DeserializeReport(buf[:n])
		if err != nil {
			fmt.Println("malformed report:", err)
			continue
		}
		if report.MessageType == matchnet.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", report.Err)
			continue
		}
		fmt.Printf("\n[EXECUTION] qty=%d.%02d price=%d.%02d vs=%s\n",
			report.QtyCents/100, report.QtyCents%100,
			report.PriceCents/100, report.PriceCents%100,
			report.Counterparty)
	}
}
