package models

// Employee is one row of an employee search result. CardNo is the natural
// selection key and is unique within a single result set.
type Employee struct {
	EmpID        string `json:"emp_id"`
	CardNo       string `json:"card_no"`
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department,omitempty"`
}

// EmployeeList is the envelope returned by GET /employees.
type EmployeeList struct {
	Employees []Employee `json:"employees"`
}
