package scheduler

import (
	"fmt"
	"strings"

	"hiretrack/internal/hire/models"
)

func legalReminderText(hire *models.Hire, daysLeft int) string {
	return fmt.Sprintf(
		"Legal reminder\n\n"+
			"#%s (%s) starts in %d day(s).\n"+
			"Documents have not been sent yet.\n\n"+
			"@%s, please prepare the documents for %s",
		hire.Code, hire.FullName, daysLeft, hire.Legal.Handle, hire.DocsEmail,
	)
}

func devopsReminderText(hire *models.Hire, daysLeft int) string {
	return fmt.Sprintf(
		"DevOps reminder\n\n"+
			"#%s (%s) starts in %d day(s).\n"+
			"Access has not been granted yet.\n\n"+
			"@%s, please set up access",
		hire.Code, hire.FullName, daysLeft, hire.DevOps.Handle,
	)
}

func escalationText(hire *models.Hire, daysOverdue int) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"ESCALATION: onboarding overdue\n\n"+
			"#%s (%s) is overdue.\n"+
			"Start date was %s.\n"+
			"Overdue by %d day(s).\n\n"+
			"Unfinished tasks:\n",
		hire.Code, hire.FullName, hire.StartDate.Format("02.01.2006"), daysOverdue,
	)
	if hire.LegalStatus == models.LegalPending {
		fmt.Fprintf(&b, "- Legal (@%s): documents not sent\n", hire.Legal.Handle)
	}
	if hire.DevOpsStatus == models.DevOpsPending {
		fmt.Fprintf(&b, "- DevOps (@%s): access not granted\n", hire.DevOps.Handle)
	}
	fmt.Fprintf(&b, "\nRecruiter: card creator ID %d", hire.CreatorID)
	return b.String()
}

func escalationCreatorText(hire *models.Hire) string {
	return fmt.Sprintf("Escalation: onboarding #%s is overdue. Check the onboarding channel.", hire.Code)
}
