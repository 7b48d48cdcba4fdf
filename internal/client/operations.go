package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/protocol/session"
)

func (s *Session) requireUser() error {
	if s.user == NoUser {
		fmt.Fprintln(s.out, "Please login first!")
		return ErrNotLoggedIn
	}
	return nil
}

func refused(err error) session.RetryResult {
	return session.RetryResult{State: session.StateDeclined, Err: err}
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Login announces id to the log server and makes it the current user.
func (s *Session) Login(id int) session.RetryResult {
	if s.user != NoUser {
		fmt.Fprintln(s.out, "Already logged in! Please logout first.")
		return refused(ErrAlreadyLoggedIn)
	}
	return s.run("login", func() error {
		resp, err := s.send(auditServer, protocol.Request{Kind: protocol.KindLogin, SubjectID: id})
		if err != nil {
			fmt.Fprintf(s.out, "Login failed: %v\n", err)
			return err
		}
		if !resp.OK {
			fmt.Fprintf(s.out, "Login failed: %s\n", resp.Message)
			return &ServerError{Op: "login", Message: resp.Message}
		}
		s.user = id
		fmt.Fprintf(s.out, "Logged in as user %d\n", id)
		return nil
	})
}

func (s *Session) Deposit(amount float64) session.RetryResult {
	if err := s.requireUser(); err != nil {
		return refused(err)
	}
	return s.run("deposit", func() error {
		req := protocol.Request{Kind: protocol.KindDeposit, SubjectID: s.user, Amount: amount}
		resp, err := s.finance("Deposit", req)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deposit successful. New balance: %s\n", money(resp.Balance))
		s.audit(req, "transaction")
		return nil
	})
}

func (s *Session) Withdraw(amount float64) session.RetryResult {
	if err := s.requireUser(); err != nil {
		return refused(err)
	}
	return s.run("withdrawal", func() error {
		req := protocol.Request{Kind: protocol.KindWithdraw, SubjectID: s.user, Amount: amount}
		resp, err := s.finance("Withdrawal", req)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Withdrawal successful. New balance: %s\n", money(resp.Balance))
		s.audit(req, "transaction")
		return nil
	})
}

// Balance fetches the current balance; the audit entry carries the amount seen.
func (s *Session) Balance() (float64, session.RetryResult) {
	if err := s.requireUser(); err != nil {
		return 0, refused(err)
	}
	var balance float64
	res := s.run("balance check", func() error {
		resp, err := s.finance("Balance request", protocol.Request{Kind: protocol.KindBalance, SubjectID: s.user})
		if err != nil {
			return err
		}
		balance = resp.Balance
		fmt.Fprintf(s.out, "Current balance: %s\n", money(balance))
		s.audit(protocol.Request{Kind: protocol.KindBalance, SubjectID: s.user, Amount: balance}, "transaction")
		return nil
	})
	return balance, res
}

// EarnInterest asks the finance server to accrue interest using workers goroutines.
func (s *Session) EarnInterest(workers int) session.RetryResult {
	if err := s.requireUser(); err != nil {
		return refused(err)
	}
	return s.run("interest update", func() error {
		req := protocol.Request{Kind: protocol.KindEarnInterest, SubjectID: s.user, Amount: float64(workers)}
		if _, err := s.finance("Interest update", req); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Interest update successful!")
		s.audit(req, "transaction")
		return nil
	})
}

func (s *Session) finance(op string, req protocol.Request) (protocol.Response, error) {
	resp, err := s.send(financeServer, req)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			fmt.Fprintln(s.out, "Not connected to finance server!")
		} else {
			fmt.Fprintf(s.out, "%s failed: %v\n", op, err)
		}
		return resp, err
	}
	if !resp.OK {
		fmt.Fprintf(s.out, "%s failed: %s\n", op, resp.Message)
		return resp, &ServerError{Op: op, Message: resp.Message}
	}
	return resp, nil
}

// Upload sends the local file at path; the stored name is its base name.
func (s *Session) Upload(path string) session.RetryResult {
	if err := s.requireUser(); err != nil {
		return refused(err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(s.out, "Error: Could not open file")
		return refused(err)
	}
	name := filepath.Base(path)
	return s.run("file upload", func() error {
		req := protocol.Request{Kind: protocol.KindUploadFile, SubjectID: s.user, Name: name, Payload: string(content)}
		if _, err := s.files("File upload", req); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "File upload successful")
		s.audit(protocol.Request{Kind: protocol.KindUploadFile, SubjectID: s.user, Name: name}, "file upload")
		return nil
	})
}

// Download fetches name into the configured download directory.
func (s *Session) Download(name string) session.RetryResult {
	if err := s.requireUser(); err != nil {
		return refused(err)
	}
	return s.run("file download", func() error {
		req := protocol.Request{Kind: protocol.KindDownloadFile, SubjectID: s.user, Name: name}
		resp, err := s.files("File download", req)
		if err != nil {
			return err
		}
		dest := filepath.Join(s.cfg.DownloadDir, filepath.Base(name))
		if err := os.WriteFile(dest, []byte(resp.Payload), 0o644); err != nil {
			fmt.Fprintln(s.out, "Error: Could not create output file")
			return err
		}
		fmt.Fprintln(s.out, "File downloaded successfully")
		s.audit(req, "file download")
		return nil
	})
}

func (s *Session) files(op string, req protocol.Request) (protocol.Response, error) {
	resp, err := s.send(fileServer, req)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			fmt.Fprintln(s.out, "Not connected to file server!")
		} else {
			fmt.Fprintf(s.out, "%s failed: %v\n", op, err)
		}
		return resp, err
	}
	if !resp.OK {
		fmt.Fprintf(s.out, "%s failed: %s\n", op, resp.Message)
		return resp, &ServerError{Op: op, Message: resp.Message}
	}
	return resp, nil
}

// Logout always clears the user locally, even when the log server is unreachable.
func (s *Session) Logout() session.RetryResult {
	if s.user == NoUser {
		fmt.Fprintln(s.out, "Not logged in!")
		return refused(ErrNotLoggedIn)
	}
	return s.run("logout", func() error {
		id := s.user
		s.user = NoUser
		if s.channels[auditServer] == nil {
			fmt.Fprintln(s.out, "Not connected to logging server!")
			fmt.Fprintln(s.out, "Logged out locally")
			return nil
		}
		if _, err := s.send(auditServer, protocol.Request{Kind: protocol.KindLogout, SubjectID: id}); err != nil {
			fmt.Fprintf(s.out, "Logout from server failed: %v\n", err)
			fmt.Fprintln(s.out, "Logged out locally")
			return nil
		}
		fmt.Fprintln(s.out, "Logged out successfully")
		return nil
	})
}
