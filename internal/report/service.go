package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/signintech/gopdf"

	"clerking-assistant/internal/intake"
	"clerking-assistant/internal/platform/logger"
)

// TelegramClient is the delivery channel for clinician reports.
type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service renders a completed clerking session as a PDF and sends it to the
// supervising clinician's chat.
type Service struct {
	tgClient        TelegramClient
	clinicianChatID int64
	log             *logger.Logger
}

func NewService(tg TelegramClient, clinicianChatID int64, log *logger.Logger) *Service {
	return &Service{
		tgClient:        tg,
		clinicianChatID: clinicianChatID,
		log:             log,
	}
}

var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

func (s *Service) SendClerkingReport(ctx context.Context, sess intake.Session) error {
	s.log.Info("generating clerking report", "session_id", sess.ID)

	data, err := renderPDF(sess)
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("clerking_%s.pdf", sess.ID.String())
	if err := s.tgClient.SendDocument(s.clinicianChatID, data, fileName); err != nil {
		return errors.Wrap(err, "send clerking report")
	}
	s.log.Info("clerking report sent", "session_id", sess.ID, "chat_id", s.clinicianChatID)
	return nil
}

func renderPDF(sess intake.Session) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, errors.Wrap(fontErr, "load report font")
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Clinical Clerking Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", sess.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Triage level: %s", sess.RuleBasedTriage()))
	pdf.Br(25)

	c := sess.Collected

	if err := writeSection(&pdf, "Biodata:"); err != nil {
		return nil, err
	}
	for _, key := range []string{"name", "age", "gender", "occupation"} {
		if v, ok := c.Biodata[key]; ok {
			writeLine(&pdf, fmt.Sprintf("- %s: %s", key, v))
		}
	}
	pdf.Br(10)

	if err := writeSection(&pdf, "Presenting complaints:"); err != nil {
		return nil, err
	}
	if len(c.PresentingComplaints) == 0 {
		writeLine(&pdf, "- None recorded.")
	}
	for _, complaint := range c.PresentingComplaints {
		writeLine(&pdf, "- "+complaint)
	}
	pdf.Br(10)

	if sess.HPCSummary != "" {
		if err := writeSection(&pdf, "Summary:"); err != nil {
			return nil, err
		}
		writeLine(&pdf, sess.HPCSummary)
		pdf.Br(10)
	}

	if err := writeSection(&pdf, "Differential diagnoses:"); err != nil {
		return nil, err
	}
	if len(sess.Differentials) == 0 {
		writeLine(&pdf, "- None generated.")
	}
	for _, d := range sess.Differentials {
		writeLine(&pdf, fmt.Sprintf("- %s (Confidence: %s)", d.Diagnosis, d.Confidence))
	}
	pdf.Br(10)

	for _, section := range []struct {
		title   string
		answers map[string]string
		keys    []string
	}{
		{"Past medical history:", c.PastMedicalHistory, []string{"chronic_conditions", "previous_similar_illness", "recent_hospital_admission"}},
		{"Drug and allergy history:", c.DrugHistory, []string{"regular_medications", "allergies"}},
		{"Social history:", c.SocialHistory, []string{"alcohol", "smoking"}},
	} {
		if len(section.answers) == 0 {
			continue
		}
		if err := writeSection(&pdf, section.title); err != nil {
			return nil, err
		}
		for _, key := range section.keys {
			if v, ok := section.answers[key]; ok {
				writeLine(&pdf, fmt.Sprintf("- %s: %s", key, v))
			}
		}
		pdf.Br(10)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "write pdf")
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *gopdf.GoPdf, title string) error {
	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, title)
	pdf.Br(15)
	return pdf.SetFont("DejaVu", "", 11)
}

func writeLine(pdf *gopdf.GoPdf, line string) {
	lines, _ := pdf.SplitText(line, 500)
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}
