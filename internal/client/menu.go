package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const menuText = `
=== Networked Banking System Menu ===
1. Login
2. Deposit
3. Withdraw
4. View Balance
5. Upload File
6. Download File
7. Logout
8. Server Status
9. Update Interest for All Accounts
0. Exit
Enter choice: `

// Menu drives a Session from operator input.
type Menu struct {
	Session *Session
	Prompt  *Prompter
	Out     io.Writer
	// Status renders menu item 8; nil prints nothing.
	Status func(w io.Writer)
}

// Run loops until Exit, end of input, or shutdown. It reports whether shutdown ended it.
func (m *Menu) Run(ctx context.Context) bool {
	for ctx.Err() == nil {
		line, err := m.Prompt.Ask(ctx, menuText)
		if err != nil {
			break
		}
		choice, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(m.Out, "Invalid input. Please enter a number.")
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if choice == 0 {
			return false
		}
		if err := m.dispatch(ctx, choice); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			fmt.Fprintln(m.Out, "Invalid input.")
		}
	}
	return ctx.Err() != nil
}

func (m *Menu) dispatch(ctx context.Context, choice int) error {
	s := m.Session
	switch choice {
	case 1:
		if s.User() != NoUser {
			fmt.Fprintln(m.Out, "Already logged in! Please logout first.")
			return nil
		}
		id, err := m.askInt(ctx, "Enter user ID: ")
		if err != nil {
			return err
		}
		s.Login(id)
	case 2, 3:
		if s.requireUser() != nil {
			return nil
		}
		prompt := "Enter amount to deposit: "
		if choice == 3 {
			prompt = "Enter amount to withdraw: "
		}
		amount, err := m.askFloat(ctx, prompt)
		if err != nil {
			return err
		}
		if choice == 2 {
			s.Deposit(amount)
		} else {
			s.Withdraw(amount)
		}
	case 4:
		s.Balance()
	case 5:
		if s.requireUser() != nil {
			return nil
		}
		path, err := m.Prompt.Ask(ctx, "Enter filename to upload: ")
		if err != nil {
			return err
		}
		s.Upload(path)
	case 6:
		if s.requireUser() != nil {
			return nil
		}
		name, err := m.Prompt.Ask(ctx, "Enter filename to download: ")
		if err != nil {
			return err
		}
		s.Download(name)
	case 7:
		s.Logout()
	case 8:
		if m.Status != nil {
			m.Status(m.Out)
		}
	case 9:
		if s.requireUser() != nil {
			return nil
		}
		workers, err := m.askInt(ctx, "Input a number of threads to use: ")
		if err != nil {
			return err
		}
		s.EarnInterest(workers)
	default:
		fmt.Fprintln(m.Out, "Invalid choice. Please try again.")
	}
	return nil
}

func (m *Menu) askInt(ctx context.Context, prompt string) (int, error) {
	line, err := m.Prompt.Ask(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(line)
}

func (m *Menu) askFloat(ctx context.Context, prompt string) (float64, error) {
	line, err := m.Prompt.Ask(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(line, 64)
}
